package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
)

// gensecret generates the HS256 signing secret for bearer tokens.
// The secret is stored in the config/env and shared by every node that
// must accept each other's tokens.
//
// Usage:
//   go run cmd/gensecret/main.go
//
// This will output a value that should be stored in JWT_SECRET
func main() {
	// 48 random bytes comfortably clears the 32-byte minimum the
	// server enforces.
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	fmt.Println("✅ Token secret generated!")
	fmt.Println("\n📝 Add this to your .env file:")
	fmt.Println("\nJWT_SECRET='" + secret + "'")
	fmt.Println("\n⚠️  IMPORTANT:")
	fmt.Println("   - Keep this secret SECRET")
	fmt.Println("   - Never commit it to version control")
	fmt.Println("   - Every node must share the same value")
	fmt.Println("   - Rotating it invalidates all outstanding sessions")

	// Optionally write to a file (not committed)
	if len(os.Args) > 1 && os.Args[1] == "--save" {
		filename := "jwt-secret.txt"
		if err := os.WriteFile(filename, []byte(secret+"\n"), 0600); err != nil {
			log.Fatalf("Failed to write secret file: %v", err)
		}
		fmt.Printf("\n💾 Secret saved to %s (remember to add to .gitignore!)\n", filename)
	}
}
