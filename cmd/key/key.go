// Command key generates a fee-payer key for msgrelayd, or shows the
// address of an existing one.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/FuelLabs/bridge-message-predicates/signer"
)

func main() {
	prv := flag.String("key", "", "hex-encoded private key to show instead of generating one")
	flag.Parse()

	var (
		s   *signer.Signer
		err error
	)
	if *prv != "" {
		s, err = signer.FromHex(*prv)
	} else {
		s, err = signer.Generate()
	}
	if err != nil {
		log.Fatal(err)
	}
	if *prv == "" {
		fmt.Printf("private %x\n", []byte(s.PrivateKey()))
	}
	fmt.Printf("public  %x\n", []byte(s.PublicKey()))
	fmt.Printf("address %s\n", s.Address())
}
