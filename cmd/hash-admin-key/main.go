package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) > 2 {
		fmt.Println("Usage: go run cmd/hash-admin-key/main.go [admin-key]")
		fmt.Println("Example: go run cmd/hash-admin-key/main.go \"studio-admin-key-12345\"")
		os.Exit(1)
	}

	// Generate a key when none is given
	apiKey := ""
	if len(os.Args) == 2 {
		apiKey = os.Args[1]
	} else {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate admin key: %v\n", err)
			os.Exit(1)
		}
		apiKey = hex.EncodeToString(buf)
	}

	// Hash the admin key
	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash admin key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Admin key hashed successfully!\n\n")
	fmt.Printf("Admin Key: %s\n", apiKey)
	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", apiKeyHash)
	fmt.Printf("\n⚠️  IMPORTANT: Save this admin key securely! Only the hash goes into the environment.\n")
	fmt.Printf("\nSend the key in either header:\n")
	fmt.Printf("X-Admin-Key: %s\n", apiKey)
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
