package contractmsg

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	chainjson "github.com/chain/txvm/encoding/json"
	"github.com/chain/txvm/errors"
)

// Build output file names.
const (
	ScriptFile    = "contract_message_script.bin"
	PredicateFile = "contract_message_predicate.bin"
	ManifestFile  = "manifest.json"
)

var (
	ErrArtifactMismatch = errors.New("artifact does not match its manifest")

	// ErrDrift means a rebuild would produce a different predicate.
	// Its root is the address messages are sent to, so deploying the
	// rebuild would orphan every message sent to the old address.
	ErrDrift = errors.New("program drift")
)

// Options parameterize program generation.
type Options struct {
	Policy    Policy `json:"policy"`
	Signature string `json:"signature"`

	// Selector, when nonzero, is used instead of deriving one from Signature.
	Selector uint32 `json:"selector,omitempty"`
}

var DefaultOptions = Options{Policy: DefaultPolicy, Signature: DefaultSignature}

// FunctionSelector returns the selector the script calls.
func (o Options) FunctionSelector() uint32 {
	if o.Selector != 0 {
		return o.Selector
	}
	return FunctionSelector(o.Signature)
}

// Artifacts are the generated programs and their identities.
type Artifacts struct {
	Options
	Script        []byte
	Predicate     []byte
	ScriptHash    fuel.Bytes32
	PredicateRoot fuel.Address
}

// ScriptHash is the identity of a script: the SHA-256 of its bytes.
func ScriptHash(script []byte) fuel.Bytes32 {
	return fuel.Hash(script)
}

// PredicateRoot is the identity of a predicate, and the address of
// everything it guards.
func PredicateRoot(predicate []byte) fuel.Address {
	return fuel.CodeRoot(predicate)
}

// Build generates the script, then the predicate bound to its hash.
// Rebuilding with the same options yields byte-identical programs.
func Build(opts Options) (*Artifacts, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Selector == 0 && opts.Signature == "" {
		return nil, errors.WithDetail(ErrPolicy, "no function signature or selector")
	}
	script, err := BuildScript(opts.Policy.Script, opts.FunctionSelector())
	if err != nil {
		return nil, errors.Wrap(err, "building script")
	}
	scriptBytes, err := script.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "encoding script")
	}
	hash := ScriptHash(scriptBytes)
	pred, err := BuildPredicate(opts.Policy.Predicate, hash)
	if err != nil {
		return nil, errors.Wrap(err, "building predicate")
	}
	predBytes, err := pred.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "encoding predicate")
	}
	return &Artifacts{
		Options:       opts,
		Script:        scriptBytes,
		Predicate:     predBytes,
		ScriptHash:    hash,
		PredicateRoot: PredicateRoot(predBytes),
	}, nil
}

func mustBuild(opts Options) *Artifacts {
	a, err := Build(opts)
	if err != nil {
		panic(err)
	}
	return a
}

// DefaultArtifacts are the programs built with DefaultOptions.
var DefaultArtifacts = mustBuild(DefaultOptions)

type manifest struct {
	Options
	ScriptHash    chainjson.HexBytes `json:"script_hash"`
	PredicateRoot chainjson.HexBytes `json:"predicate_root"`
	ScriptSize    int                `json:"script_size"`
	PredicateSize int                `json:"predicate_size"`
}

// WriteArtifacts writes the programs and a manifest of their
// identities to dir, creating it if needed.
func (a *Artifacts) WriteArtifacts(dir string) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	m := manifest{
		Options:       a.Options,
		ScriptHash:    a.ScriptHash[:],
		PredicateRoot: a.PredicateRoot[:],
		ScriptSize:    len(a.Script),
		PredicateSize: len(a.Predicate),
	}
	mbits, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling manifest")
	}
	for name, bits := range map[string][]byte{
		ScriptFile:    a.Script,
		PredicateFile: a.Predicate,
		ManifestFile:  append(mbits, '\n'),
	} {
		err = ioutil.WriteFile(filepath.Join(dir, name), bits, 0644)
		if err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
	}
	return nil
}

// ReadArtifacts loads programs written by WriteArtifacts and checks
// them against the manifest.
func ReadArtifacts(dir string) (*Artifacts, error) {
	read := func(name string) ([]byte, error) {
		bits, err := ioutil.ReadFile(filepath.Join(dir, name))
		return bits, errors.Wrapf(err, "reading %s", name)
	}
	script, err := read(ScriptFile)
	if err != nil {
		return nil, err
	}
	pred, err := read(PredicateFile)
	if err != nil {
		return nil, err
	}
	mbits, err := read(ManifestFile)
	if err != nil {
		return nil, err
	}
	var m manifest
	err = json.Unmarshal(mbits, &m)
	if err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}

	a := &Artifacts{
		Options:       m.Options,
		Script:        script,
		Predicate:     pred,
		ScriptHash:    ScriptHash(script),
		PredicateRoot: PredicateRoot(pred),
	}
	if string(m.ScriptHash) != string(a.ScriptHash[:]) {
		return nil, errors.WithDetailf(ErrArtifactMismatch, "%s hashes to %s, manifest says %x", ScriptFile, a.ScriptHash, []byte(m.ScriptHash))
	}
	if string(m.PredicateRoot) != string(a.PredicateRoot[:]) {
		return nil, errors.WithDetailf(ErrArtifactMismatch, "%s has root %s, manifest says %x", PredicateFile, a.PredicateRoot, []byte(m.PredicateRoot))
	}
	return a, nil
}

// CheckDrift rebuilds a's programs from its options and reports
// ErrDrift if the result differs from a.
func CheckDrift(a *Artifacts) error {
	fresh, err := Build(a.Options)
	if err != nil {
		return errors.Wrap(err, "rebuilding")
	}
	if fresh.PredicateRoot != a.PredicateRoot {
		return errors.WithDetailf(ErrDrift, "predicate root %s would become %s; messages sent to the old address would be orphaned", a.PredicateRoot, fresh.PredicateRoot)
	}
	if fresh.ScriptHash != a.ScriptHash {
		return errors.WithDetailf(ErrDrift, "script hash %s would become %s", a.ScriptHash, fresh.ScriptHash)
	}
	return nil
}
