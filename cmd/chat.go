package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careloop/server/pkg/api"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat against a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		email, _ := cmd.Flags().GetString("email")
		baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

		fmt.Println("Ask a medical question (Ctrl+C or /quit to exit).")
		fmt.Println()

		scanner := bufio.NewScanner(os.Stdin)
		var chatID int64

		for {
			fmt.Print(">>> ")
			if !scanner.Scan() {
				fmt.Println()
				return nil
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "/quit" || input == "/exit" {
				return nil
			}

			answer, newChatID, err := sendQuery(baseURL, email, chatID, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			chatID = newChatID

			fmt.Println(answer)
			fmt.Println()
		}
	},
}

// sendQuery opens a chat on the first message and continues it afterwards.
func sendQuery(baseURL, email string, chatID int64, query string) (string, int64, error) {
	url := baseURL + "/api/chats"
	if chatID != 0 {
		url = fmt.Sprintf("%s/%d", url, chatID)
	}

	body, _ := json.Marshal(api.ChatRequest{Query: query})
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", chatID, err
	}
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set("X-User-Email", email)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", chatID, fmt.Errorf("is 'careloop-server serve' running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return "", chatID, fmt.Errorf("%s", apiErr.Error.Message)
		}
		return "", chatID, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if chatID == 0 {
		var chat api.Chat
		if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
			return "", chatID, err
		}
		if len(chat.Turns) == 0 {
			return "", chat.ID, fmt.Errorf("empty response")
		}
		fmt.Printf("[%s]\n", chat.Title)
		return chat.Turns[len(chat.Turns)-1].Answer, chat.ID, nil
	}

	var turn api.Turn
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		return "", chatID, err
	}
	return turn.Answer, chatID, nil
}

func init() {
	chatCmd.Flags().Int("port", 8080, "server port")
	chatCmd.Flags().String("email", "", "identity sent as X-User-Email")
	rootCmd.AddCommand(chatCmd)
}
