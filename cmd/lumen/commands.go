package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/lumen/internal/app"
	"github.com/five82/lumen/internal/browse"
	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/tasks"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List recent server tasks, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTasks,
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search images by description, or list them when no query is given",
	RunE:  runSearch,
}

var infoCmd = &cobra.Command{
	Use:   "info <image-id>",
	Short: "Show what the server knows about one image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var processCmd = &cobra.Command{
	Use:   "process <directory>",
	Short: "Process a directory of images in the background",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Report which images in a directory are new",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a single image",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Load the server's models",
	Args:  cobra.NoArgs,
	RunE:  runPreload,
}

var (
	tasksLimit     int
	searchObjects  string
	searchLimit    int
	processRecurse bool
	processForce   bool
	processWait    bool
	scanRecurse    bool
	scanList       bool
	uploadNoProc   bool
	uploadReplace  bool
)

func init() {
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 20, "number of tasks to list")

	searchCmd.Flags().StringVar(&searchObjects, "objects", "", "comma separated objects the images must contain")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")

	processCmd.Flags().BoolVarP(&processRecurse, "recursive", "r", false, "include subdirectories")
	processCmd.Flags().BoolVarP(&processForce, "force", "f", false, "reprocess images that were already processed")
	processCmd.Flags().BoolVarP(&processWait, "wait", "w", false, "follow the task until it finishes")

	scanCmd.Flags().BoolVarP(&scanRecurse, "recursive", "r", false, "include subdirectories")
	scanCmd.Flags().BoolVar(&scanList, "list", false, "print the paths of new images")

	uploadCmd.Flags().BoolVar(&uploadNoProc, "no-process", false, "store the image without processing it")
	uploadCmd.Flags().BoolVar(&uploadReplace, "overwrite", false, "replace an existing image with the same name")
}

func runHealth(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	start := time.Now()
	health, err := client.Health(cmd.Context())
	if err != nil {
		return userError("health", err)
	}
	latency := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("server", client.BaseURL()))
	status := warnStyle.Render(health.Status)
	if health.Healthy() {
		status = okStyle.Render(health.Status)
	}
	fmt.Fprintln(out, field("status", status))
	if health.Version != "" {
		fmt.Fprintln(out, field("version", health.Version))
	}
	fmt.Fprintln(out, field("database", yesNo(health.DatabaseConnected, "connected", "disconnected")))
	fmt.Fprintln(out, field("models", yesNo(health.ModelsLoaded, "loaded", "not loaded")))
	if up := health.UptimeDuration(); up > 0 {
		now := time.Now()
		fmt.Fprintln(out, field("uptime", humanize.RelTime(now.Add(-up), now, "", "")))
	}
	fmt.Fprintln(out, field("latency", latency.Round(time.Millisecond).String()))
	return nil
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return okStyle.Render(yes)
	}
	return errStyle.Render(no)
}

func runTasks(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		task, err := client.FetchTask(cmd.Context(), args[0])
		if err != nil {
			return userError("task "+args[0], err)
		}
		printTaskDetail(out, *task)
		return nil
	}

	list, err := client.ListTasks(cmd.Context(), tasksLimit)
	if err != nil {
		return userError("list tasks", err)
	}
	counts := tasks.ComputeCounts(list.Tasks)
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Tasks"),
		mutedStyle.Render(fmt.Sprintf("%d total, %d active, %d completed, %d failed",
			counts.Total, counts.Active, counts.Completed, counts.Failed)))
	for _, t := range list.Tasks {
		fmt.Fprintln(out, formatTaskRow(t))
	}
	return nil
}

func formatTaskRow(t imgapi.Task) string {
	status := t.State()
	var b strings.Builder
	b.WriteString(statusStyle(status).Render(fmt.Sprintf("%-10s", status)))
	b.WriteString(" ")
	b.WriteString(t.ID)
	if status.Active() {
		b.WriteString(fmt.Sprintf(" %3.0f%%", t.Percent()))
	}
	if t.Message != "" {
		b.WriteString("  ")
		b.WriteString(t.Message)
	}
	if created := t.ParsedCreatedAt(); !created.IsZero() {
		b.WriteString(mutedStyle.Render("  " + humanize.Time(created)))
	}
	return b.String()
}

func printTaskDetail(out io.Writer, t imgapi.Task) {
	fmt.Fprintln(out, field("task", t.ID))
	fmt.Fprintln(out, field("status", statusStyle(t.State()).Render(string(t.State()))))
	fmt.Fprintln(out, field("progress", fmt.Sprintf("%.0f%%", t.Percent())))
	if t.TotalFiles > 0 {
		fmt.Fprintln(out, field("files", fmt.Sprintf("%d", t.TotalFiles)))
	}
	if t.Message != "" {
		fmt.Fprintln(out, field("message", t.Message))
	}
	if t.Error != "" {
		fmt.Fprintln(out, field("error", errStyle.Render(t.Error)))
	}
	if created := t.ParsedCreatedAt(); !created.IsZero() {
		fmt.Fprintln(out, field("created", created.Format(time.DateTime)+" ("+humanize.Time(created)+")"))
	}
	if updated := t.ParsedUpdatedAt(); !updated.IsZero() {
		fmt.Fprintln(out, field("updated", humanize.Time(updated)))
	}
	keys := make([]string, 0, len(t.Result))
	for k := range t.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(out, field(k, fmt.Sprint(t.Result[k])))
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	q := imgapi.ImageQuery{
		Query:   strings.TrimSpace(strings.Join(args, " ")),
		Objects: browse.ParseObjects(searchObjects),
		Limit:   searchLimit,
	}
	label := "listing images"
	if q.Query != "" {
		label = "searching for " + fmt.Sprintf("%q", q.Query)
	}
	infos, err := runOp(cmd.Context(), label, q.Kind(), client.Budget(q.Kind()), func(ctx context.Context) ([]imgapi.ImageInfo, error) {
		return client.ListImages(ctx, q)
	})
	if err != nil {
		return userError("search", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no images found"))
		return nil
	}
	for _, info := range infos {
		fmt.Fprintln(out, formatImageRow(info))
	}
	return nil
}

func formatImageRow(info imgapi.ImageInfo) string {
	var b strings.Builder
	switch {
	case info.Score != nil:
		b.WriteString(okStyle.Render(fmt.Sprintf("%.3f", *info.Score)))
		b.WriteString(" ")
	case info.Distance != nil:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("d%.3f", *info.Distance)))
		b.WriteString(" ")
	}
	name := info.Path
	if name == "" {
		name = info.Filename
	}
	b.WriteString(titleStyle.Render(name))
	if w, h := info.Dimensions(); w > 0 && h > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d×%d", w, h)))
	}
	if info.FileSize > 0 {
		b.WriteString(mutedStyle.Render("  " + humanize.Bytes(uint64(info.FileSize))))
	}
	if info.Caption != "" {
		b.WriteString("\n    ")
		b.WriteString(info.Caption)
	}
	if len(info.Objects) > 0 {
		b.WriteString("\n    ")
		b.WriteString(mutedStyle.Render(strings.Join(info.Objects, ", ")))
	}
	return b.String()
}

func runInfo(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	info, err := client.FetchImageInfo(cmd.Context(), args[0])
	if err != nil {
		return userError("image "+args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("id", info.ID))
	fmt.Fprintln(out, field("path", info.Path))
	if w, h := info.Dimensions(); w > 0 && h > 0 {
		fmt.Fprintln(out, field("size", fmt.Sprintf("%d×%d", w, h)))
	}
	if info.FileSize > 0 {
		fmt.Fprintln(out, field("file", humanize.Bytes(uint64(info.FileSize))))
	}
	if info.Format != "" {
		fmt.Fprintln(out, field("format", info.Format))
	}
	if info.Caption != "" {
		fmt.Fprintln(out, field("caption", info.Caption))
	}
	if len(info.Objects) > 0 {
		fmt.Fprintln(out, field("objects", strings.Join(info.Objects, ", ")))
	}
	if info.ProcessedAt != "" {
		fmt.Fprintln(out, field("processed", info.ProcessedAt))
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	req := imgapi.ProcessDirectoryRequest{DirectoryPath: dir, Recursive: processRecurse, ForceReprocess: processForce}

	ticket, err := runOp(cmd.Context(), "submitting "+dir, imgapi.KindProcessing, client.Budget(imgapi.KindProcessing),
		func(ctx context.Context) (imgapi.TaskTicket, error) {
			return client.ProcessDirectory(ctx, req)
		})
	if err != nil {
		return userError("process", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("task", ticket.TaskID))
	if ticket.Message != "" {
		fmt.Fprintln(out, field("message", ticket.Message))
	}
	if !processWait {
		fmt.Fprintln(out, mutedStyle.Render("follow with: lumen tasks "+ticket.TaskID))
		return nil
	}

	logFile, err := app.OpenLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	task, err := waitForTask(cmd.Context(), client, ticket.TaskID, filepath.Base(dir), cfg.TaskPollInterval)
	if err != nil {
		return err
	}
	printTaskDetail(out, task)
	if task.State() == imgapi.StatusFailed {
		return fmt.Errorf("task %s failed", task.ID)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	result, err := runOp(cmd.Context(), "scanning "+dir, imgapi.KindProcessing, client.Budget(imgapi.KindProcessing),
		func(ctx context.Context) (imgapi.ScanResult, error) {
			return client.ScanDirectory(ctx, dir, scanRecurse)
		})
	if err != nil {
		return userError("scan", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("directory", result.DirectoryPath))
	fmt.Fprintln(out, field("images", humanize.Comma(int64(result.TotalFiles))))
	fmt.Fprintln(out, field("new", okStyle.Render(humanize.Comma(int64(result.NewFiles)))))
	fmt.Fprintln(out, field("processed", humanize.Comma(int64(result.AlreadyProcessed))))
	if len(result.SupportedFormats) > 0 {
		fmt.Fprintln(out, field("formats", strings.Join(result.SupportedFormats, " ")))
	}
	if scanList {
		for _, p := range result.NewFilePaths {
			fmt.Fprintln(out, "  "+p)
		}
	}
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	opts := imgapi.UploadOptions{ProcessImmediately: !uploadNoProc, Overwrite: uploadReplace}
	result, err := runOp(cmd.Context(), "uploading "+filepath.Base(args[0]), imgapi.KindUpload, client.Budget(imgapi.KindUpload),
		func(ctx context.Context) (imgapi.UploadResult, error) {
			return client.UploadImage(ctx, args[0], opts)
		})
	if err != nil {
		return userError("upload", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("file", result.FilePath))
	fmt.Fprintln(out, field("size", humanize.Bytes(uint64(result.FileSize))))
	if result.ImageID != "" {
		fmt.Fprintln(out, field("image id", result.ImageID))
	}
	if result.Message != "" {
		fmt.Fprintln(out, field("message", result.Message))
	}
	return nil
}

func runPreload(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}
	result, err := runOp(cmd.Context(), "loading models", imgapi.KindPreload, client.Budget(imgapi.KindPreload),
		client.PreloadModels)
	if err != nil {
		return userError("preload", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, field("device", result.Device))
	names := make([]string, 0, len(result.Timings))
	for name := range result.Timings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := time.Duration(result.Timings[name] * float64(time.Second))
		fmt.Fprintln(out, field(name, d.Round(time.Millisecond).String()))
	}
	return nil
}
