// Package main 是 hybridrec 命令行入口：加载配置、目录和模型包，输出 JSON 推荐结果。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/catalog"
	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/pkg/conv"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch cmd := os.Args[1]; cmd {
	case "recommend":
		err = runRecommend(os.Args[2:])
	case "similar":
		err = runSimilar(os.Args[2:])
	case "popular":
		err = runPopular(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "view":
		err = runView(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("hybridrec version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: hybridrec <command> [flags]

Commands:
  recommend   hybrid recommendations for a user and/or seed products
  similar     products similar to one product
  popular     most popular products
  search      search the catalog by name or category
  stats       catalog and model statistics
  view        record a product view for a session
  serve       read JSON requests from stdin, one per line; hot-reloads the model bundle
  version     print version

Run "hybridrec <command> -h" for command flags.
`)
}

// commonFlags 是所有子命令共用的参数。
type commonFlags struct {
	configPath string
	catalog    string
	modelDir   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file path (defaults only when empty)")
	fs.StringVar(&c.catalog, "catalog", "", "catalog CSV path, overrides catalog.path")
	fs.StringVar(&c.modelDir, "model-dir", "", "model directory, overrides artifacts.dir and "+config.EnvModelDir)
}

func (c *commonFlags) setup(ctx context.Context) (*components, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.catalog != "" {
		cfg.Catalog.Path = c.catalog
	}
	if c.modelDir != "" {
		cfg.Artifacts.Dir = c.modelDir
	}
	return initializeComponents(ctx, cfg, newLogger(cfg.Log))
}

// listFlag 是逗号分隔或可重复的字符串参数。
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error {
	*l = append(*l, conv.SplitNonEmpty(v, ",")...)
	return nil
}

// paramFlag 是可重复的 key=value 参数，值按 int/float/bool/string 推断类型。
type paramFlag map[string]any

func (p paramFlag) String() string { return fmt.Sprint(map[string]any(p)) }
func (p paramFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("param must be key=value, got %q", v)
	}
	p[k] = conv.ParseScalar(val)
	return nil
}

// optionalFloat 区分未设置和显式设置为 0。
type optionalFloat struct{ v *float64 }

func (o *optionalFloat) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'g', -1, 64)
}
func (o *optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func runRecommend(args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	var (
		common   commonFlags
		seeds    listFlag
		excluded listFlag
		alpha    optionalFloat
		params   = paramFlag{}
	)
	common.register(fs)
	user := fs.String("user", "", "user id")
	sess := fs.String("session", "", "session id, viewed products are excluded")
	topK := fs.Int("top-k", 0, "number of results (config default when 0)")
	expr := fs.String("expr", "", `CEL filter, e.g. 'item.product.rating >= 4.0'`)
	fs.Var(&seeds, "seeds", "seed product ids (comma separated, repeatable)")
	fs.Var(&excluded, "exclude", "product ids to exclude (comma separated, repeatable)")
	fs.Var(&alpha, "alpha", "collaborative weight in [0,1] (config default when unset)")
	fs.Var(params, "param", "expression parameter key=value (repeatable)")
	_ = fs.Parse(args)

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.blender.Recommend(ctx, hybrid.Request{
		UserID:         *user,
		SessionID:      *sess,
		SeedProductIDs: seeds,
		TopK:           *topK,
		Alpha:          alpha.v,
		Excluded:       excluded,
		Expr:           *expr,
		Params:         params,
	})
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, newResponse(res))
}

func runSimilar(args []string) error {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	var (
		common   commonFlags
		excluded listFlag
	)
	common.register(fs)
	product := fs.String("product", "", "product id (required)")
	n := fs.Int("n", 0, "number of results (config default when 0)")
	fs.Var(&excluded, "exclude", "product ids to exclude")
	_ = fs.Parse(args)
	if *product == "" {
		return fmt.Errorf("-product is required")
	}

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.blender.Similar(ctx, *product, *n, excluded...)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, newResponse(res))
}

func runPopular(args []string) error {
	fs := flag.NewFlagSet("popular", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	n := fs.Int("n", 0, "number of results (config default when 0)")
	_ = fs.Parse(args)

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return writeJSON(os.Stdout, newResponse(c.blender.Popular(ctx, *n)))
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	limit := fs.Int("limit", 20, "max products to print")
	category := fs.String("category", "", "category segment filter")
	var minPrice, maxPrice, minRating optionalFloat
	fs.Var(&minPrice, "min-price", "minimum discounted price")
	fs.Var(&maxPrice, "max-price", "maximum discounted price")
	fs.Var(&minRating, "min-rating", "minimum rating")
	_ = fs.Parse(args)
	q := strings.Join(fs.Args(), " ")

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var products []*core.Product
	count := 0
	if q != "" {
		products, count = c.catalog.Search(q, *limit)
	} else {
		products = c.catalog.Filter(catalog.Query{
			Category:  *category,
			MinPrice:  minPrice.v,
			MaxPrice:  maxPrice.v,
			MinRating: minRating.v,
		})
		count = len(products)
		if *limit > 0 && len(products) > *limit {
			products = products[:*limit]
		}
	}
	return writeJSON(os.Stdout, map[string]any{"products": products, "count": count})
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	sess := fs.String("session", "", "session id for viewed_count")
	_ = fs.Parse(args)

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	viewed, err := c.viewed.Viewed(ctx, *sess)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, struct {
		catalog.Stats
		ViewedCount int    `json:"viewed_count"`
		ModelLoaded bool   `json:"model_loaded"`
		ModelDir    string `json:"model_dir"`
	}{
		Stats:       catalog.ComputeStats(c.catalog),
		ViewedCount: len(viewed),
		ModelLoaded: c.blender.ModelLoaded(),
		ModelDir:    c.cfg.Artifacts.Dir,
	})
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	sess := fs.String("session", "", "session id (required)")
	product := fs.String("product", "", "product id (required)")
	_ = fs.Parse(args)
	if *sess == "" || *product == "" {
		return fmt.Errorf("-session and -product are required")
	}

	ctx := context.Background()
	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	p, ok := c.catalog.Lookup(*product)
	if !ok {
		return core.ErrCatalogMiss
	}
	if err := c.viewed.Record(ctx, *sess, *product); err != nil {
		return err
	}
	return writeJSON(os.Stdout, p)
}

// serveRequest 是 serve 模式下的一行输入。
type serveRequest struct {
	UserID         string         `json:"user_id"`
	SessionID      string         `json:"session_id"`
	SeedProductIDs []string       `json:"seed_product_ids"`
	TopK           int            `json:"top_k"`
	Alpha          *float64       `json:"alpha"`
	Excluded       []string       `json:"excluded"`
	Expr           string         `json:"expr"`
	Params         map[string]any `json:"params"`

	// Similar 非空时返回与该商品相似的商品
	Similar string `json:"similar"`
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := common.setup(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.startBackground(ctx); err != nil {
		return err
	}

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		if err := scanRequests(os.Stdin, lines); err != nil {
			c.logger.Error().Err(err).Msg("read stdin requests")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin 关闭后继续服务热加载和 /metrics，直到收到信号
				if c.watcher == nil && c.metrics == nil {
					return nil
				}
				lines = nil
				continue
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			if err := serveLine(ctx, c, line, os.Stdout); err != nil {
				_ = writeJSON(os.Stdout, map[string]string{"error": err.Error()})
			}
		}
	}
}

// maxRequestLine 是单条请求行的最大字节数
const maxRequestLine = 1 << 20

// scanRequests 把 r 中的每一行复制后送入 out，返回扫描错误（超长行为 bufio.ErrTooLong）。
func scanRequests(r io.Reader, out chan<- []byte) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRequestLine)
	for sc.Scan() {
		out <- append([]byte(nil), sc.Bytes()...)
	}
	return sc.Err()
}

func serveLine(ctx context.Context, c *components, line []byte, w io.Writer) error {
	var req serveRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if req.Similar != "" {
		res, err := c.blender.Similar(ctx, req.Similar, req.TopK, req.Excluded...)
		if err != nil {
			return err
		}
		return writeJSON(w, newResponse(res))
	}
	res, err := c.blender.Recommend(ctx, hybrid.Request{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		SeedProductIDs: req.SeedProductIDs,
		TopK:           req.TopK,
		Alpha:          req.Alpha,
		Excluded:       req.Excluded,
		Expr:           req.Expr,
		Params:         req.Params,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, newResponse(res))
}

// response 是输出格式。
type response struct {
	*hybrid.Result
	Recommendations []*core.Product `json:"recommendations"`
}

func newResponse(res *hybrid.Result) response {
	return response{Result: res, Recommendations: res.Products()}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
