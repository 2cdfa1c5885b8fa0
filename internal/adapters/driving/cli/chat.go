package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var chatAttach []string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about a document",
}

var chatSendCmd = &cobra.Command{
	Use:   "send [doc-id] [message...]",
	Short: "Send a message and stream the reply",
	Long: `Sends a message in the conversation of a document and prints the reply
as it streams. Other processed documents can be attached with --attach.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChatSend,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [doc-id]",
	Short: "Print the conversation of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

func init() {
	chatSendCmd.Flags().StringSliceVarP(&chatAttach, "attach", "a", nil, "IDs of processed documents to attach")

	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatSend(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errChatNotConfigured
	}

	ctx := cmd.Context()
	text := strings.Join(args[1:], " ")

	attachments, err := resolveAttachments(ctx, chatAttach)
	if err != nil {
		return err
	}

	conv := chatService.Open(args[0])
	defer conv.Close()

	result, err := streamReply(ctx, conv, cmd.OutOrStdout(), text, attachments)
	switch result.State {
	case domain.ExchangeCancelled:
		cmd.PrintErrln("Cancelled.")
		return nil
	case domain.ExchangeFailed:
		return fmt.Errorf("chat failed: %w", err)
	}
	return err
}

// streamReply sends text and echoes the streamed reply to out as it grows.
func streamReply(
	ctx context.Context,
	conv driving.Conversation,
	out io.Writer,
	text string,
	attachments []domain.AttachmentRef,
) (domain.ExchangeResult, error) {
	changes, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	type outcome struct {
		result domain.ExchangeResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := conv.Send(ctx, text, attachments)
		done <- outcome{result, err}
	}()

	echo := &replyEcho{out: out}
	for {
		select {
		case <-changes:
			echo.update(conv.Messages(), "")
		case o := <-done:
			if o.result.State != domain.ExchangeFailed {
				echo.update(conv.Messages(), o.result.PlaceholderID)
			}
			echo.finish()
			return o.result, o.err
		}
	}
}

// replyEcho prints the part of the reply not printed yet.
type replyEcho struct {
	out     io.Writer
	id      string
	printed int
}

// update follows the placeholder: the given id, or the first assistant
// message that is not an error message.
func (e *replyEcho) update(messages []domain.Message, id string) {
	if id != "" {
		e.id = id
	}
	for _, m := range messages {
		am, ok := m.(domain.AssistantMessage)
		if !ok {
			continue
		}
		if e.id == "" && !strings.HasPrefix(am.Content, domain.ErrorMessagePrefix) {
			e.id = am.ID
		}
		if am.ID != e.id {
			continue
		}
		if len(am.Content) > e.printed {
			fmt.Fprint(e.out, am.Content[e.printed:])
			e.printed = len(am.Content)
		}
		return
	}
}

func (e *replyEcho) finish() {
	if e.printed > 0 {
		fmt.Fprintln(e.out)
	}
}

// resolveAttachments maps document IDs to references of processed documents.
func resolveAttachments(ctx context.Context, ids []string) ([]domain.AttachmentRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if documentService == nil {
		return nil, errDocumentNotConfigured
	}
	if err := documentService.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	refs := make([]domain.AttachmentRef, 0, len(ids))
	for _, id := range ids {
		doc, ok := documentService.Get(id)
		if !ok {
			return nil, fmt.Errorf("attachment %s: %w", id, domain.ErrNotFound)
		}
		if doc.Status != domain.DocumentProcessed {
			return nil, fmt.Errorf("%w: attachment %s is %s", domain.ErrInvalidInput, id, doc.Status)
		}
		refs = append(refs, doc.Ref())
	}
	return refs, nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errChatNotConfigured
	}

	conv := chatService.Open(args[0])
	defer conv.Close()

	if err := conv.LoadHistory(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	messages := conv.Messages()
	if len(messages) == 0 {
		cmd.Println("No messages yet.")
		return nil
	}
	for _, m := range messages {
		printMessage(cmd, m)
	}
	return nil
}

func printMessage(cmd *cobra.Command, m domain.Message) {
	switch msg := m.(type) {
	case domain.UserMessage:
		cmd.Printf("You: %s\n", msg.Content)
		if len(msg.Attachments) > 0 {
			titles := make([]string, 0, len(msg.Attachments))
			for _, a := range msg.Attachments {
				titles = append(titles, a.Title)
			}
			cmd.Printf("  attached: %s\n", strings.Join(titles, ", "))
		}
	case domain.AssistantMessage:
		cmd.Printf("Assistant: %s\n", msg.Content)
	}
	cmd.Println()
}
