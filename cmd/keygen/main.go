// Command keygen writes the RSA key pair used to sign and verify session
// tokens.
package main

import (
	"log"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"github.com/vncsmyrnk/stv/internal/core/credentials"
)

func main() {
	dir := flag.String("out", "keys", "directory to write private.pem and public.pem to")
	bits := flag.Int("bits", 2048, "RSA key size")
	force := flag.Bool("force", false, "overwrite existing keys")
	flag.Parse()

	privPath := filepath.Join(*dir, "private.pem")
	pubPath := filepath.Join(*dir, "public.pem")
	if !*force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				log.Fatalf("%s already exists, use --force to overwrite", p)
			}
		}
	}

	privPEM, pubPEM, err := credentials.GenerateKeyPair(*bits)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s and %s", privPath, pubPath)
}
