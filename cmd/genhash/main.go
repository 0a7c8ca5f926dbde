package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// genhash prints the bcrypt hash and insert statement for an admin panel
// user. The password is read from stdin so it stays out of shell history.
func main() {
	username := flag.String("user", "", "admin username")
	role := flag.String("role", "admin", "owner or admin")
	rights := flag.String("rights", "trades", "comma-separated rights for the admin role (trades, ledger)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}
	if *role != "owner" && *role != "admin" {
		fmt.Fprintln(os.Stderr, "-role must be owner or admin")
		os.Exit(2)
	}

	fmt.Fprint(os.Stderr, "password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "empty password")
		os.Exit(2)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var quoted []string
	for _, r := range strings.Split(*rights, ",") {
		if r = strings.TrimSpace(r); r != "" {
			quoted = append(quoted, r)
		}
	}
	fmt.Printf("Hash: %s\n", hash)
	fmt.Printf("insert into admin_users (username, password_hash, role, rights) values ('%s', '%s', '%s', '{%s}');\n",
		strings.ReplaceAll(*username, "'", "''"), hash, *role, strings.Join(quoted, ","))
}
