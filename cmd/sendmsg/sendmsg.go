// Command sendmsg seeds a development node: it sends messages, mints
// coins, and deploys contracts.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	contractmsg "github.com/FuelLabs/bridge-message-predicates"
	"github.com/FuelLabs/bridge-message-predicates/devnode"
	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/interstellar/starlight/env"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] message|mint|deploy\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	ctx := context.Background()

	var (
		nodeURL   = flag.String("node", env.String("MSGRELAY_NODE", "http://localhost:2424/node"), "node url")
		to        = flag.String("to", "", "message recipient or coin owner (default: the predicate root)")
		sender    = flag.String("sender", "", "message sender")
		contract  = flag.String("contract", "", "contract id: the message target, or the contract to deploy")
		extra     = flag.String("data", "", "hex data appended to the contract id in the message")
		amount    = flag.Uint64("amount", 0, "amount to send or mint")
		selector  = flag.Uint64("selector", uint64(contractmsg.FunctionSelector(contractmsg.DefaultSignature)), "with deploy, the only selector the contract accepts (0 for any)")
		artifacts = flag.String("artifacts", "", "directory written by genprogs (default: the default programs)")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}

	a := contractmsg.DefaultArtifacts
	if *artifacts != "" {
		var err error
		a, err = contractmsg.ReadArtifacts(*artifacts)
		if err != nil {
			log.Fatal(err)
		}
	}

	parse := func(name, s string, def fuel.Bytes32) fuel.Bytes32 {
		if s == "" {
			return def
		}
		b, err := fuel.ParseBytes32(s)
		if err != nil {
			log.Fatalf("parsing -%s: %s", name, err)
		}
		return b
	}

	client := devnode.NewClient(*nodeURL)

	switch flag.Arg(0) {
	case "message":
		if *contract == "" {
			log.Fatal("must specify -contract")
		}
		cid := parse("contract", *contract, fuel.Bytes32{})
		data := append([]byte(nil), cid[:]...)
		if *extra != "" {
			b, err := hex.DecodeString(*extra)
			if err != nil {
				log.Fatalf("parsing -data: %s", err)
			}
			data = append(data, b...)
		}
		m, err := client.SendMessage(ctx, parse("sender", *sender, fuel.Bytes32{}), parse("to", *to, a.PredicateRoot), *amount, data)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("message %s (nonce %d)\n", m.ID(), m.Nonce)

	case "mint":
		if *to == "" {
			log.Fatal("must specify -to")
		}
		c, err := client.Mint(ctx, parse("to", *to, fuel.Bytes32{}), fuel.BaseAsset, *amount)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("coin %s:%d, %d to %s\n", c.UTXOID.TxID, c.UTXOID.OutputIndex, c.Amount, c.Owner)

	case "deploy":
		if *contract == "" {
			log.Fatal("must specify -contract")
		}
		c, err := client.Deploy(ctx, parse("contract", *contract, fuel.Bytes32{}), *selector)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("contract %s (selector %#x)\n", c.ID, c.Selector)

	default:
		usage()
	}
}
