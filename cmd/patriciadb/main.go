package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/patriciadb/patriciadb/pkg/io"
	"github.com/patriciadb/patriciadb/pkg/storage"
	"github.com/patriciadb/patriciadb/pkg/storage/dbconfig"
	"github.com/patriciadb/patriciadb/pkg/trie"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// stateAuxKey keeps the database state record between invocations.
var stateAuxKey = storage.AppendPrefix(storage.DataTrieAux, []byte("state"))

// dbState is the persisted database state: the current trie root and the
// options it was built with. Options are checked on every open, mixing
// layouts within one database would silently lose data.
type dbState struct {
	root         []byte
	noExtensions bool
	refCount     bool
}

// EncodeBinary implements the io.Serializable interface.
func (s *dbState) EncodeBinary(w *io.BinWriter) {
	w.WriteBool(s.noExtensions)
	w.WriteBool(s.refCount)
	w.WriteVarBytes(s.root)
}

// DecodeBinary implements the io.Serializable interface.
func (s *dbState) DecodeBinary(r *io.BinReader) {
	s.noExtensions = r.ReadBool()
	s.refCount = r.ReadBool()
	s.root = r.ReadVarBytes(64)
}

func main() {
	ctl := cli.NewApp()
	ctl.Name = "patriciadb"
	ctl.Usage = "Merkle-Patricia trie storage tool"
	ctl.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML storage configuration",
		},
		cli.StringFlag{
			Name:  "db",
			Usage: "database type (leveldb, boltdb, inmemory)",
			Value: dbconfig.LevelDB,
		},
		cli.StringFlag{
			Name:  "path, p",
			Usage: "path to the database",
			Value: "./patriciadb",
		},
		cli.BoolFlag{
			Name:  "no-extensions",
			Usage: "use the trie layout without extension nodes",
		},
		cli.BoolFlag{
			Name:  "refcount",
			Usage: "maintain node reference counters and prune orphans",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "size of the read-through node cache, 0 to disable",
		},
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "count backend store operations with prometheus",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "enable debug logging",
		},
	}
	ctl.Commands = []cli.Command{
		{
			Name:      "put",
			Usage:     "store a key-value pair",
			ArgsUsage: "<key> <value>",
			Action:    cmdPut,
		},
		{
			Name:      "get",
			Usage:     "retrieve the value for a key",
			ArgsUsage: "<key>",
			Action:    cmdGet,
		},
		{
			Name:      "delete",
			Usage:     "remove a key",
			ArgsUsage: "<key>",
			Action:    cmdDelete,
		},
		{
			Name:   "root",
			Usage:  "print the current root hash",
			Action: cmdRoot,
		},
		{
			Name:      "list",
			Usage:     "list entries in key order",
			ArgsUsage: "[prefix]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "seek",
					Usage: "start listing at this key",
				},
			},
			Action: cmdList,
		},
		{
			Name:      "prove",
			Usage:     "print an inclusion proof for the given keys",
			ArgsUsage: "<key> [key...]",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "compact",
					Usage: "emit a compact proof",
				},
			},
			Action: cmdProve,
		},
		{
			Name:      "verify",
			Usage:     "check a proof against a root hash",
			ArgsUsage: "<root-hex> <key> <value-or--> <proof-node-hex>...",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "compact",
					Usage: "treat the proof as compact",
				},
			},
			Action: cmdVerify,
		},
	}
	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(ctx *cli.Context) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if ctx.GlobalBool("debug") {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func storeConfig(ctx *cli.Context) (dbconfig.DBConfiguration, error) {
	var cfg dbconfig.DBConfiguration
	if path := ctx.GlobalString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	cfg.Type = ctx.GlobalString("db")
	cfg.LevelDBOptions.DataDirectoryPath = ctx.GlobalString("path")
	cfg.BoltDBOptions.FilePath = ctx.GlobalString("path")
	return cfg, nil
}

func layout(ctx *cli.Context) *trie.Layout {
	return trie.NewLayout(nil, !ctx.GlobalBool("no-extensions"))
}

// openTrie opens the configured store and loads the trie at the root saved
// by the previous invocation.
func openTrie(ctx *cli.Context) (storage.Store, *trie.Trie, error) {
	cfg, err := storeConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	st, err := storage.NewStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if ctx.GlobalBool("metrics") {
		// Wrapped below the cache so that only backend hits are counted.
		st = storage.WithMetrics(st)
	}
	if size := ctx.GlobalInt("cache"); size > 0 {
		st, err = storage.NewCachedStore(st, size)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up cache: %w", err)
		}
	}
	l := layout(ctx)
	tcfg := trie.Config{
		Store:           st,
		Layout:          l,
		RefCountEnabled: ctx.GlobalBool("refcount"),
	}
	data, err := st.Get(stateAuxKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			st.Close()
			return nil, nil, err
		}
		return st, trie.NewTrie(nil, tcfg), nil
	}
	var state dbState
	if err := io.FromBytes(data, &state); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to read database state: %w", err)
	}
	if state.noExtensions != ctx.GlobalBool("no-extensions") ||
		state.refCount != ctx.GlobalBool("refcount") {
		st.Close()
		return nil, nil, errors.New("database was created with different options")
	}
	return st, trie.NewTrieFromRoot(state.root, tcfg), nil
}

// commit flushes the trie and saves its root for the next invocation.
func commit(ctx *cli.Context, st storage.Store, tr *trie.Trie) error {
	if err := tr.Flush(); err != nil {
		return fmt.Errorf("failed to flush trie: %w", err)
	}
	data, err := io.ToBytes(&dbState{
		root:         tr.Root(),
		noExtensions: ctx.GlobalBool("no-extensions"),
		refCount:     ctx.GlobalBool("refcount"),
	})
	if err != nil {
		return err
	}
	return st.Put(stateAuxKey, data)
}

func cmdPut(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.NewExitError("put requires <key> and <value>", 1)
	}
	log, err := newLogger(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer log.Sync()
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	if err := tr.Put([]byte(ctx.Args().Get(0)), []byte(ctx.Args().Get(1))); err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := commit(ctx, st, tr); err != nil {
		return cli.NewExitError(err, 1)
	}
	log.Info("key stored", zap.String("root", hex.EncodeToString(tr.Root())))
	return nil
}

func cmdGet(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("get requires <key>", 1)
	}
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	v, err := tr.Get([]byte(ctx.Args().Get(0)))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(v))
	return nil
}

func cmdDelete(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("delete requires <key>", 1)
	}
	log, err := newLogger(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer log.Sync()
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	if err := tr.Delete([]byte(ctx.Args().Get(0))); err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := commit(ctx, st, tr); err != nil {
		return cli.NewExitError(err, 1)
	}
	log.Info("key removed", zap.String("root", hex.EncodeToString(tr.Root())))
	return nil
}

func cmdRoot(ctx *cli.Context) error {
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(tr.Root()))
	return nil
}

func cmdList(ctx *cli.Context) error {
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	var it *trie.Iterator
	prefix := []byte(ctx.Args().Get(0))
	if seek := ctx.String("seek"); seek != "" {
		it = trie.NewPrefixSeekIterator(tr, prefix, []byte(seek))
	} else {
		it = trie.NewPrefixIterator(tr, prefix)
	}
	for it.Next() {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\n", it.Key(), it.Value())
	}
	if err := it.Err(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func cmdProve(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("prove requires at least one key", 1)
	}
	st, tr, err := openTrie(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer st.Close()
	keys := make([][]byte, ctx.NArg())
	for i := range keys {
		keys[i] = []byte(ctx.Args().Get(i))
	}
	var proof [][]byte
	if ctx.Bool("compact") {
		proof, err = tr.GetCompactProof(keys...)
	} else {
		proof, err = tr.GetProof(keys...)
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for _, p := range proof {
		fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(p))
	}
	return nil
}

// cmdVerify checks a single claim against a proof without opening any
// database, proofs are self-contained. A "-" value claims absence.
func cmdVerify(ctx *cli.Context) error {
	if ctx.NArg() < 3 {
		return cli.NewExitError("verify requires <root-hex>, <key>, <value-or--> and proof nodes", 1)
	}
	root, err := hex.DecodeString(ctx.Args().Get(0))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid root: %w", err), 1)
	}
	pair := trie.ProofPair{Key: []byte(ctx.Args().Get(1))}
	if v := ctx.Args().Get(2); v != "-" {
		pair.Value = []byte(v)
	}
	proof := make([][]byte, 0, ctx.NArg()-3)
	for i := 3; i < ctx.NArg(); i++ {
		p, err := hex.DecodeString(ctx.Args().Get(i))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid proof node: %w", err), 1)
		}
		proof = append(proof, p)
	}
	l := layout(ctx)
	if ctx.Bool("compact") {
		err = trie.VerifyCompactProof(l, root, []trie.ProofPair{pair}, proof)
	} else {
		err = trie.VerifyProof(l, root, []trie.ProofPair{pair}, proof)
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "OK")
	return nil
}
