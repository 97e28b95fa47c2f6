// Утилита генерации bcrypt-хеша пароля оператора для конфигурации.
package main

import (
	"fmt"
	"os"

	"github.com/merik2009/vpn-shop-bot/internal/lib/password"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashgen <password>")
		os.Exit(2)
	}

	hash, err := password.GetHash(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to hash password:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
