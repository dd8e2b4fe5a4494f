package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/migratio-labs/ragserve/internal/core/domain"
)

// maxHistoryTurns bounds the conversation history sent to the backends.
const maxHistoryTurns = 20

var (
	answerStyle = lipgloss.NewStyle().PaddingLeft(2)
	metaStyle   = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about the ingested documents",
	Long: `Answers a question using retrieved document context and the
configured generation cascade. With no argument, starts an interactive
session that keeps conversation history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if len(args) == 1 {
		return askOnce(cmd, args[0])
	}
	return chatLoop(cmd)
}

// askOnce answers a single question with no history.
func askOnce(cmd *cobra.Command, query string) error {
	answer, err := chatService.Answer(cmd.Context(), query, nil)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	printAnswer(cmd, answer)
	return nil
}

// chatLoop runs an interactive session on stdin.
func chatLoop(cmd *cobra.Command) error {
	cmd.Println("Interactive chat. Type a question, or \"exit\" to quit.")

	var history []domain.ChatMessage
	scanner := bufio.NewScanner(os.Stdin)

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		answer, err := chatService.Answer(cmd.Context(), query, history)
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		printAnswer(cmd, answer)

		history = append(history,
			domain.ChatMessage{Role: domain.RoleUser, Content: query},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: answer.Text},
		)
		if len(history) > maxHistoryTurns*2 {
			history = history[len(history)-maxHistoryTurns*2:]
		}
	}
	return scanner.Err()
}

// printAnswer renders the answer and its provenance.
func printAnswer(cmd *cobra.Command, answer *domain.ChatAnswer) {
	cmd.Println(answerStyle.Render(answer.Text))

	meta := "backend: " + answer.BackendUsed
	if answer.ContextFree {
		meta += " (no document context available)"
	} else if len(answer.Sources) > 0 {
		titles := make([]string, 0, len(answer.Sources))
		for _, s := range answer.Sources {
			titles = append(titles, documentTitle(s.Document))
		}
		meta += " | sources: " + strings.Join(titles, ", ")
	}
	cmd.Println(metaStyle.Render(meta))
}
