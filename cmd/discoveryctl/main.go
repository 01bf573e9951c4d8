// discoveryctl 本地服务的命令行前端
// 扮演桌面 UI 的角色：驱动批量上传、自适应轮询和检索
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/CaseMark/discovery-desktop/internal/client"
	"github.com/CaseMark/discovery-desktop/internal/domain/document"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	applog "github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

const usage = `用法: discoveryctl <命令> [参数]

命令:
  cases                         列出全部案件
  create  <案件名>              创建案件
  delete  <案件ID>              删除案件
  docs    <案件ID>              列出案件文档
  upload  <案件ID> <文件...>    批量上传文件并轮询到全部定型
  watch   <案件ID> <目录>       监听目录，新文件自动导入
  search  <案件ID> <问题>       检索（-threshold 调整相关度阈值）
  analysis <案件ID>             查看案件分析结果
`

func main() {
	applog.Init(nil)

	server := flag.String("server", "http://localhost:19970", "本地服务地址")
	threshold := flag.Int("threshold", 0, "检索相关度阈值 (0-100)")
	summary := flag.Bool("summary", false, "检索时生成摘要")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.NewConfig()
	api := client.NewAPIClient(*server)
	ctx := context.Background()

	if err := api.HealthCheck(ctx); err != nil {
		fatalf("本地服务不可达 (%s): %v\n请先启动 discovery-server", *server, err)
	}

	var err error
	switch cmd := args[0]; cmd {
	case "cases":
		err = listCases(ctx, api)
	case "create":
		err = createCase(ctx, api, rest(args, 1))
	case "delete":
		err = deleteCase(ctx, api, rest(args, 1))
	case "docs":
		err = listDocs(ctx, api, rest(args, 1))
	case "upload":
		err = upload(ctx, api, cfg, args[1:])
	case "watch":
		err = watch(ctx, api, cfg, args[1:])
	case "search":
		err = search(ctx, api, args[1:], *threshold, *summary)
	case "analysis":
		err = showAnalysis(ctx, api, rest(args, 1))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fatalf("%v", err)
	}
}

func rest(args []string, i int) string {
	if len(args) <= i {
		return ""
	}
	return args[i]
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func listCases(ctx context.Context, api *client.APIClient) error {
	cs, err := api.ListCases(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t名称\t创建时间")
	for _, c := range cs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, time.Unix(c.CreatedAt, 0).Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func createCase(ctx context.Context, api *client.APIClient, name string) error {
	if name == "" {
		return fmt.Errorf("用法: discoveryctl create <案件名>")
	}
	c, err := api.CreateCase(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("已创建案件 %s (%s)\n", c.Name, c.ID)
	return nil
}

func deleteCase(ctx context.Context, api *client.APIClient, caseID string) error {
	if caseID == "" {
		return fmt.Errorf("用法: discoveryctl delete <案件ID>")
	}
	if err := api.DeleteCase(ctx, caseID); err != nil {
		return err
	}
	fmt.Println("已删除")
	return nil
}

func listDocs(ctx context.Context, api *client.APIClient, caseID string) error {
	if caseID == "" {
		return fmt.Errorf("用法: discoveryctl docs <案件ID>")
	}
	docs, err := api.ListDocuments(ctx, caseID)
	if err != nil {
		return err
	}
	printDocs(docs)
	return nil
}

func printDocs(docs []*document.DocumentRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t文件名\t状态\t页数")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.ID, d.Filename, d.Status, d.PageCount)
	}
	_ = w.Flush()
}

// upload 批量上传并轮询状态直到全部定型
func upload(ctx context.Context, api *client.APIClient, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("用法: discoveryctl upload <案件ID> <文件...>")
	}
	caseID, paths := args[0], args[1:]

	uploader := client.NewUploader(api, &cfg.Upload, func(task *client.UploadTask) {
		fmt.Printf("  %-40s %-12s %3d%%\n", task.Filename, task.State, task.Progress)
	})

	tasks, err := uploader.NewTasks(paths)
	if err != nil {
		return err
	}

	fmt.Printf("上传 %d 个文件到案件 %s\n", len(tasks), caseID)
	if err := uploader.Upload(ctx, caseID, tasks); err != nil {
		return err
	}

	// 轮询到所有文档定型后轮询器自然停下
	poller := client.NewPoller(api, &cfg.Client, func(docs []*document.DocumentRecord) {
		printDocs(docs)
	})
	poller.Start(ctx, caseID)
	poller.Kick()
	poller.Wait()

	fmt.Println("全部文档已定型")
	return nil
}

// watch 监听目录，新文件落盘后自动导入
func watch(ctx context.Context, api *client.APIClient, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("用法: discoveryctl watch <案件ID> <目录>")
	}
	caseID, dir := args[0], args[1]

	uploader := client.NewUploader(api, &cfg.Upload, func(task *client.UploadTask) {
		fmt.Printf("  %-40s %-12s %3d%%\n", task.Filename, task.State, task.Progress)
	})
	poller := client.NewPoller(api, &cfg.Client, func(docs []*document.DocumentRecord) {
		printDocs(docs)
	})
	watcher := client.NewFolderWatcher(uploader, poller, &cfg.Upload)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("监听目录 %s，新文件将自动导入案件 %s (Ctrl-C 退出)\n", dir, caseID)
	return watcher.Watch(watchCtx, caseID, dir)
}

func search(ctx context.Context, api *client.APIClient, args []string, threshold int, withSummary bool) error {
	if len(args) < 2 {
		return fmt.Errorf("用法: discoveryctl search <案件ID> <问题>")
	}
	caseID, query := args[0], args[1]

	result, err := api.Search(ctx, caseID, query, threshold, withSummary)
	if err != nil {
		return err
	}

	resp := result.Response
	fmt.Printf("检索 %s（阈值 %d，命中 %d 段 / %d 个文档）\n",
		result.SearchID, threshold, len(resp.Chunks), len(resp.Sources))
	if resp.Summary != "" {
		fmt.Printf("\n摘要:\n%s\n", resp.Summary)
	}
	for _, chunk := range resp.Chunks {
		fmt.Printf("\n[%.2f] %s\n%s\n", chunk.CombinedScore, chunk.Filename, chunk.Text)
	}
	return nil
}

func showAnalysis(ctx context.Context, api *client.APIClient, caseID string) error {
	if caseID == "" {
		return fmt.Errorf("用法: discoveryctl analysis <案件ID>")
	}
	result, err := api.GetAnalysis(ctx, caseID)
	if err != nil {
		return err
	}

	fmt.Printf("标签: %v\n摘要: %s\n", result.Tags, result.Summary)
	if result.LastError != "" {
		fmt.Printf("上次分析失败: %s\n", result.LastError)
	}
	return nil
}
