package main

import (
	"fmt"
	"os"

	"github.com/famcash/push-server/internal/webpush"
)

func main() {
	publicB64, privateB64, err := webpush.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicB64)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateB64)
}
