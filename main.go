package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bandradio/radio-cache/internal/cache"
	"github.com/bandradio/radio-cache/internal/config"
	"github.com/bandradio/radio-cache/internal/datasource"
	"github.com/bandradio/radio-cache/internal/logging"
	"github.com/bandradio/radio-cache/internal/resource"
	"github.com/bandradio/radio-cache/internal/server"
	"github.com/bandradio/radio-cache/internal/server/routes"
	"github.com/bandradio/radio-cache/internal/station"
	"github.com/bandradio/radio-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	// fetchName 非空时只加载该资源一次并逐行输出结果，不启动 HTTP 服务。
	fetchName string
	fetchID   int
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["resources"] = config.ResourceSummaries(cfg.Resources)
		fields["cache_dir"] = cfg.Global.CacheDir()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	if opts.fetchName != "" && cfg.Global.LogFilePath == "" {
		// stdout 留给结果行。
		logger.SetOutput(stdErr)
	}

	// 启动顺序为“配置 → 磁盘缓存 → Loader → ResourceRegistry → Fiber server”，
	// 所有资源共享同一个缓存目录与 http.Client。
	store, err := cache.NewStore(cfg.Global.StoragePath, cfg.Global.AppID)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	loader, err := datasource.NewLoader(server.NewUpstreamClient(cfg), store, logger,
		datasource.WithUserAgent(cfg.Global.UserAgent))
	if err != nil {
		fmt.Fprintf(stdErr, "初始化加载器失败: %v\n", err)
		return 1
	}

	registry, err := server.NewResourceRegistry(cfg, loader, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建资源注册表失败: %v\n", err)
		return 1
	}

	if opts.fetchName != "" {
		return runFetch(context.Background(), registry, opts, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["resources"] = config.ResourceSummaries(cfg.Resources)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_dir"] = store.Dir()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, registry, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("radio-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		fetchName  string
		fetchID    int
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 RADIO_CACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&fetchName, "fetch", "", "加载指定资源并逐行输出 JSON 结果后退出")
	fs.IntVar(&fetchID, "id", -1, "stream-info 资源的电台 id（配合 -fetch）")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("未知参数: %v", fs.Args())
	}
	if fetchID >= 0 && fetchName == "" {
		return cliOptions{}, fmt.Errorf("-id 需要与 -fetch 一起使用")
	}

	path := os.Getenv("RADIO_CACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		fetchName:   fetchName,
		fetchID:     fetchID,
	}, nil
}

// fetchLine 是 -fetch 模式下每次回调输出的一行 JSON。
type fetchLine struct {
	Resource string            `json:"resource"`
	Outcome  resource.Outcome  `json:"outcome"`
	Source   resource.Source   `json:"source"`
	Dropped  int               `json:"dropped,omitempty"`
	Error    string            `json:"error,omitempty"`
	Stations []station.Station `json:"stations,omitempty"`
	Stream   *station.Stream   `json:"stream,omitempty"`
}

// runFetch 触发一次加载并等待所有回调结束；没有任何可用结果时返回 1。
func runFetch(ctx context.Context, registry *server.ResourceRegistry, opts cliOptions, logger *logrus.Logger) int {
	route, ok := registry.Lookup(opts.fetchName)
	if !ok {
		fmt.Fprintf(stdErr, "未知资源: %s\n", opts.fetchName)
		return 1
	}
	if route.Kind.RequiresID != (opts.fetchID >= 0) {
		if route.Kind.RequiresID {
			fmt.Fprintf(stdErr, "资源 %s 需要 -id\n", route.Config.Name)
		} else {
			fmt.Fprintf(stdErr, "资源 %s 不接受 -id\n", route.Config.Name)
		}
		return 2
	}

	var (
		mu     sync.Mutex
		usable bool
	)
	encoder := json.NewEncoder(stdOut)
	emit := func(line fetchLine, err error) {
		if err != nil {
			line.Error = err.Error()
		}
		mu.Lock()
		defer mu.Unlock()
		if line.Outcome == resource.OutcomeOK {
			usable = true
		}
		if encodeErr := encoder.Encode(line); encodeErr != nil {
			logger.WithError(encodeErr).Warn("fetch_output_failed")
		}
	}

	switch route.Kind.Key {
	case station.KindList:
		route.Cache.GetStationList(ctx, route.Config.URL, func(r resource.Result[[]station.Station]) {
			emit(fetchLine{
				Resource: route.Config.Name,
				Outcome:  r.Outcome,
				Source:   r.Source,
				Dropped:  r.Dropped,
				Stations: r.Value,
			}, r.Err)
		})
	case station.KindStream:
		route.Cache.GetStreamInfo(ctx, route.Config.URL, opts.fetchID, func(r resource.Result[station.Stream]) {
			line := fetchLine{Resource: route.Config.Name, Outcome: r.Outcome, Source: r.Source}
			if r.OK() {
				stream := r.Value
				line.Stream = &stream
			}
			emit(line, r.Err)
		})
	default:
		fmt.Fprintf(stdErr, "资源种类 %s 不支持 -fetch\n", route.Kind.Key)
		return 1
	}

	route.Cache.Wait()
	if !usable {
		return 1
	}
	return 0
}

func startHTTPServer(cfg *config.Config, registry *server.ResourceRegistry, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Handler:    server.NewDispatcher(logger),
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterResourceRoutes(app, registry)
	routes.RegisterMetricsRoute(app)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	defer registry.Wait()
	return app.Listen(fmt.Sprintf(":%d", port))
}
