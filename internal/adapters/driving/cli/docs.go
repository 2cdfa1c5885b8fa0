package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	docsJSON          bool
	docsOutput        string
	uploadWait        bool
	uploadConcurrency int
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"documents"},
	Short:   "Manage uploaded documents",
	Long:    `List, upload, download, delete, and follow the processing status of documents.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show the processing status of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsStatus,
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload PDF or text files",
	Long: `Uploads one or more PDF or plain text files (10MB max each).
Files are uploaded in parallel; the first failure cancels the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocsUpload,
}

var docsDownloadCmd = &cobra.Command{
	Use:   "download [doc-id]",
	Short: "Download the original file of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDownload,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsDelete,
}

var docsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow documents until processing finishes",
	Args:  cobra.NoArgs,
	RunE:  runDocsWatch,
}

func init() {
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output documents as JSON")
	docsDownloadCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "output file, - for stdout (default: original file name)")
	docsUploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "wait until processing finishes")
	docsUploadCmd.Flags().IntVarP(&uploadConcurrency, "concurrency", "c", 0, "parallel uploads (default: upload.concurrency)")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsStatusCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDownloadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsWatchCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	if err := documentService.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	docs := documentService.Documents()

	if docsJSON {
		return outputDocsJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	writeDocsTable(cmd.OutOrStdout(), docs)
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

type documentJSON struct {
	ID              string    `json:"id"`
	FileName        string    `json:"file_name"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ProcessingError string    `json:"processing_error,omitempty"`
}

func outputDocsJSON(cmd *cobra.Command, docs []domain.Document) error {
	out := make([]documentJSON, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentJSON{
			ID:              d.ID,
			FileName:        d.FileName,
			Status:          d.Status.String(),
			CreatedAt:       d.CreatedAt,
			ProcessingError: d.ProcessingError,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func writeDocsTable(w io.Writer, docs []domain.Document) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tNAME")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Status, formatTime(d.CreatedAt), d.FileName)
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func runDocsStatus(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	id := args[0]
	if err := documentService.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	doc, ok := documentService.Get(id)
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:     %s\n", doc.FileName)
	cmd.Printf("  Status:   %s\n", doc.Status)
	cmd.Printf("  Created:  %s\n", formatTime(doc.CreatedAt))
	if doc.ProcessingError != "" {
		cmd.Printf("  Error:    %s\n", doc.ProcessingError)
	}
	return nil
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(resolveUploadConcurrency())

	var (
		mu       sync.Mutex
		uploaded []domain.Document
	)
	printf := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		cmd.Printf(format, a...)
	}

	for _, path := range args {
		name := filepath.Base(path)
		g.Go(func() error {
			doc, err := documentService.Upload(ctx, path, func(percent int) {
				printf("%s: %d%%\n", name, percent)
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			printf("Uploaded %s as %s (%s)\n", name, doc.ID, doc.Status)

			mu.Lock()
			uploaded = append(uploaded, *doc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !uploadWait {
		return nil
	}

	cmd.Println("Waiting for processing...")
	if err := documentService.Wait(cmd.Context()); err != nil {
		return err
	}
	for _, d := range uploaded {
		if cur, ok := documentService.Get(d.ID); ok {
			d = cur
		}
		cmd.Printf("  %s: %s\n", d.FileName, d.Status)
	}
	return nil
}

func resolveUploadConcurrency() int {
	if uploadConcurrency > 0 {
		return uploadConcurrency
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.Upload.Concurrency > 0 {
			return s.Upload.Concurrency
		}
	}
	return domain.DefaultUploadConcurrency
}

func runDocsDownload(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	id := args[0]
	ctx := cmd.Context()

	if docsOutput == "-" {
		return documentService.Download(ctx, id, cmd.OutOrStdout())
	}

	target := docsOutput
	if target == "" {
		target = id
		if err := documentService.Refresh(ctx); err == nil {
			if doc, ok := documentService.Get(id); ok && doc.FileName != "" {
				target = filepath.Base(doc.FileName)
			}
		}
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if err := documentService.Download(ctx, id, f); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return fmt.Errorf("failed to download %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	cmd.Printf("Saved %s\n", target)
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	for _, id := range args {
		if err := documentService.Remove(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return nil
}

func runDocsWatch(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	ctx := cmd.Context()
	changes, unsubscribe := documentService.Subscribe()
	defer unsubscribe()

	if err := documentService.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	seen := make(map[string]domain.DocumentStatus)
	report := func() {
		for _, d := range documentService.Documents() {
			if prev, ok := seen[d.ID]; ok && prev == d.Status {
				continue
			}
			seen[d.ID] = d.Status
			line := fmt.Sprintf("%s  %-10s  %s", d.ID, d.Status, d.FileName)
			if d.ProcessingError != "" {
				line += "  (" + d.ProcessingError + ")"
			}
			cmd.Println(line)
		}
	}
	report()

	done := make(chan error, 1)
	go func() { done <- documentService.Wait(ctx) }()

	for {
		select {
		case <-changes:
			report()
		case err := <-done:
			report()
			if err != nil {
				return err
			}
			cmd.Println("No documents processing.")
			return nil
		}
	}
}
