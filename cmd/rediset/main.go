// Command rediset evaluates set expressions against Redis.
//
//	rediset add nirvana kurt krist dave
//	rediset members --expr bands.yaml
//	rediset zadd board 10 ann 7 bob
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/rediset"
	"github.com/unkn0wn-root/rediset/expr"
	rzap "github.com/unkn0wn-root/rediset/log/zap"
	"github.com/unkn0wn-root/rediset/store"
	"github.com/unkn0wn-root/rediset/store/memory"
	rredis "github.com/unkn0wn-root/rediset/store/redis"
)

// Config is the optional YAML file behind --config. Flags given on the
// command line win over file values.
type Config struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
	Memory     bool          `yaml:"memory"`
	LogLevel   string        `yaml:"log_level"`
}

var (
	cfg        Config
	configPath string
	exprPath   string
	sortedLeaf bool
	withScores bool
	descending bool
)

var rootCmd = &cobra.Command{
	Use:   "rediset",
	Short: "Lazily evaluated set algebra over Redis sets",
	Long: `rediset builds union, intersection and difference expressions over
Redis sets and sorted sets. Results are stored under content-derived keys
and reused until their TTL runs out.

Read commands take either a set name or --expr with a YAML expression file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var addCmd = &cobra.Command{
	Use:   "add <set> <member>...",
	Short: "Add members to a set",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <set> <member>...",
	Short: "Remove members from a set or, with --sorted, a sorted set",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRemove,
}

var zaddCmd = &cobra.Command{
	Use:   "zadd <set> <score> <member> [<score> <member>]...",
	Short: "Add scored members to a sorted set",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 || len(args)%2 == 0 {
			return fmt.Errorf("want a set name followed by score/member pairs")
		}
		return nil
	},
	RunE: runZAdd,
}

var sizeCmd = &cobra.Command{
	Use:   "size [set]",
	Short: "Print the cardinality of a set or expression",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSize,
}

var membersCmd = &cobra.Command{
	Use:   "members [set]",
	Short: "Print every member of a set or expression",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMembers,
}

var containsCmd = &cobra.Command{
	Use:   "contains [set] <member>",
	Short: "Report whether member is in a set or expression",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runContains,
}

var keyCmd = &cobra.Command{
	Use:   "key [set]",
	Short: "Print the storage key of a set or expression without touching the store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKey,
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached result of an expression",
	Args:  cobra.NoArgs,
	RunE:  runInvalidate,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.StringVar(&cfg.Addr, "addr", "localhost:6379", "Redis address")
	pf.StringVar(&cfg.Prefix, "prefix", "", "key namespace")
	pf.DurationVar(&cfg.DefaultTTL, "default-ttl", 0, "TTL for operation results without cache_seconds (0 = 60s)")
	pf.BoolVar(&cfg.Memory, "memory", false, "use an in-process store instead of Redis (state lasts one command)")
	pf.StringVar(&cfg.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	for _, c := range []*cobra.Command{sizeCmd, membersCmd, containsCmd, keyCmd, invalidateCmd} {
		c.Flags().StringVarP(&exprPath, "expr", "e", "", "YAML expression file")
	}
	for _, c := range []*cobra.Command{removeCmd, sizeCmd, membersCmd, containsCmd, keyCmd} {
		c.Flags().BoolVar(&sortedLeaf, "sorted", false, "treat the named set as a sorted set")
	}
	membersCmd.Flags().BoolVar(&withScores, "scores", false, "print scores (sorted results only)")
	membersCmd.Flags().BoolVar(&descending, "desc", false, "highest score first (sorted results only)")

	rootCmd.AddCommand(addCmd, removeCmd, zaddCmd, sizeCmd, membersCmd, containsCmd, keyCmd, invalidateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig fills cfg from --config for every flag the user did not set.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		return nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	mergeConfig(&cfg, file, cmd.Flags().Changed)
	return nil
}

func mergeConfig(dst *Config, file Config, changed func(string) bool) {
	if !changed("addr") && file.Addr != "" {
		dst.Addr = file.Addr
	}
	if !changed("prefix") {
		dst.Prefix = file.Prefix
	}
	if !changed("default-ttl") {
		dst.DefaultTTL = file.DefaultTTL
	}
	if !changed("memory") {
		dst.Memory = file.Memory
	}
	if !changed("log-level") && file.LogLevel != "" {
		dst.LogLevel = file.LogLevel
	}
	dst.Password = file.Password
	dst.DB = file.DB
}

type session struct {
	rs  *rediset.Rediset
	log *zap.Logger
}

func (s *session) close() {
	_ = s.rs.Close(context.Background())
	_ = s.log.Sync()
}

func open() (*session, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.Memory {
		st = memory.New(memory.Options{})
	} else {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		st, err = rredis.New(rredis.Config{Client: client, CloseClient: true})
		if err != nil {
			return nil, err
		}
	}

	rs, err := rediset.New(rediset.Options{
		Store:      st,
		KeyPrefix:  cfg.Prefix,
		DefaultTTL: cfg.DefaultTTL,
		Logger:     rzap.ZapLogger{L: logger},
		CloseStore: true,
	})
	if err != nil {
		return nil, err
	}
	return &session{rs: rs, log: logger}, nil
}

// target resolves the node a read command works on: the --expr file when
// given, otherwise the set named by args[0].
func target(rs *rediset.Rediset, args []string) (rediset.Node, []string, error) {
	if exprPath != "" {
		e, err := expr.Load(exprPath)
		if err != nil {
			return nil, nil, err
		}
		n, err := expr.Build(rs, e)
		return n, args, err
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("need a set name or --expr")
	}
	if sortedLeaf {
		return rs.SortedSet(args[0]), args[1:], nil
	}
	return rs.Set(args[0]), args[1:], nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	return s.rs.Set(args[0]).Add(cmd.Context(), args[1:]...)
}

func runRemove(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	if sortedLeaf {
		return s.rs.SortedSet(args[0]).Remove(cmd.Context(), args[1:]...)
	}
	return s.rs.Set(args[0]).Remove(cmd.Context(), args[1:]...)
}

func runZAdd(cmd *cobra.Command, args []string) error {
	zs, err := parsePairs(args[1:])
	if err != nil {
		return err
	}
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	return s.rs.SortedSet(args[0]).Add(cmd.Context(), zs...)
}

func parsePairs(args []string) ([]rediset.Z, error) {
	zs := make([]rediset.Z, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		score, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", args[i], err)
		}
		zs = append(zs, rediset.Z{Member: args[i+1], Score: score})
	}
	return zs, nil
}

func runSize(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	n, _, err := target(s.rs, args)
	if err != nil {
		return err
	}
	size, err := n.Size(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), size)
	return nil
}

func runMembers(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	n, _, err := target(s.rs, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	sn, sorted := n.(rediset.SortedNode)
	if !sorted {
		if withScores || descending {
			return fmt.Errorf("--scores and --desc need a sorted result")
		}
		ms, err := n.Members(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Fprintln(out, m)
		}
		return nil
	}

	var opts []rediset.RangeOption
	if descending {
		opts = append(opts, rediset.Descending())
	}
	zs, err := sn.RangeWithScores(cmd.Context(), 0, -1, opts...)
	if err != nil {
		return err
	}
	for _, z := range zs {
		if withScores {
			fmt.Fprintf(out, "%s\t%s\n", z.Member, strconv.FormatFloat(z.Score, 'g', -1, 64))
		} else {
			fmt.Fprintln(out, z.Member)
		}
	}
	return nil
}

func runContains(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	n, rest, err := target(s.rs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("want exactly one member")
	}
	ok, err := n.Contains(cmd.Context(), rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}

func runKey(cmd *cobra.Command, args []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	n, _, err := target(s.rs, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n.Key())
	return nil
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	if exprPath == "" {
		return fmt.Errorf("invalidate needs --expr")
	}
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()
	n, _, err := target(s.rs, args)
	if err != nil {
		return err
	}
	return s.rs.Invalidate(cmd.Context(), n)
}
