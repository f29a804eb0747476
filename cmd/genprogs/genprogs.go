// Command genprogs writes the message predicate and relay script,
// and a manifest of their identities, to a directory.
package main

import (
	"flag"
	"fmt"
	"log"

	contractmsg "github.com/FuelLabs/bridge-message-predicates"
)

func main() {
	var (
		out       = flag.String("out", "out", "output directory")
		policy    = flag.String("policy", contractmsg.DefaultPolicy.String(), "predicate/script policy pair")
		signature = flag.String("signature", contractmsg.DefaultSignature, "contract function the script calls")
		selector  = flag.String("selector", "0", "explicit 4-byte function selector, overriding -signature")
		disasm    = flag.Bool("disasm", false, "print the programs")
	)
	flag.Parse()

	p, err := contractmsg.ParsePolicy(*policy)
	if err != nil {
		log.Fatal(err)
	}
	sel, err := contractmsg.ParseSelector(*selector)
	if err != nil {
		log.Fatal(err)
	}
	a, err := contractmsg.Build(contractmsg.Options{
		Policy:    p,
		Signature: *signature,
		Selector:  sel,
	})
	if err != nil {
		log.Fatal(err)
	}
	err = a.WriteArtifacts(*out)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("policy         %s\n", a.Policy)
	fmt.Printf("selector       %#08x\n", a.FunctionSelector())
	fmt.Printf("script hash    %s (%d bytes)\n", a.ScriptHash, len(a.Script))
	fmt.Printf("predicate root %s (%d bytes)\n", a.PredicateRoot, len(a.Predicate))

	if *disasm {
		script, err := contractmsg.BuildScript(p.Script, a.FunctionSelector())
		if err != nil {
			log.Fatal(err)
		}
		pred, err := contractmsg.BuildPredicate(p.Predicate, a.ScriptHash)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("\nscript:\n%s\npredicate:\n%s", script, pred)
	}
}
