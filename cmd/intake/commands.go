package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mycare-ai/intake/internal/api"
	"github.com/mycare-ai/intake/internal/config"
	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/gateway"
	"github.com/mycare-ai/intake/internal/question"
	"github.com/mycare-ai/intake/internal/record"
	"github.com/mycare-ai/intake/internal/storage"
	"github.com/mycare-ai/intake/internal/tui"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive intake interview in the terminal",
	Long: `Run an interactive intake interview in the terminal.

The interview runs in-process against the configured agent. Answers are
recorded to the same database the server uses.

Keys:
  enter        send the query or confirm a choice
  tab          switch between the query box and the question
  ctrl+n       start a new chat
  pgup/pgdown  switch chats
  esc          quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// The TUI owns the terminal; logs go to a file in the data dir.
		logOut, closeLog := chatLogWriter(cfg.Storage.DataDir)
		defer closeLog()
		setupLogging(cfg.Log, logOut)

		agent, err := gateway.New(cfg.Agent)
		if err != nil {
			return fmt.Errorf("configuring agent: %w", err)
		}
		store, err := openStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		worker := record.NewWorker(store, 500*time.Millisecond)
		workerDone := make(chan struct{})
		go func() {
			worker.Run(ctx)
			close(workerDone)
		}()

		manager := conversation.NewManager(conversation.NewStore(), agent, record.NewRecorder(store))
		model := tui.NewModel(ctx, manager)
		defer model.Close()

		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("running chat: %w", err)
		}

		drainAgentCalls(manager, 5*time.Second)
		// Drain answers recorded just before quitting.
		for {
			ok, err := worker.RunOnce(ctx)
			if err != nil {
				printWarning("recording answers: %v", err)
				break
			}
			if !ok {
				break
			}
		}
		cancel()
		<-workerDone
		return nil
	},
}

// chatLogWriter opens chat.log in dataDir for appending. Logs are dropped
// when the file cannot be opened.
func chatLogWriter(dataDir string) (io.Writer, func()) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}

// --- ask / answer ---

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Send a query to the running server and print the agent's reply",
	Long: `Send a query to the running server and print the agent's reply.

Examples:
  intake ask "I have had a headache for three days"
  intake ask --chat 3f1c... "It started after a fall"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetString("chat")
		wait, _ := cmd.Flags().GetDuration("wait")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/api/query"
		if chatID != "" {
			path = "/api/chats/" + url.PathEscape(chatID) + "/query"
		}
		var snap api.Snapshot
		body := map[string]string{"query": strings.Join(args, " ")}
		if err := client.post(cmd.Context(), path, body, &snap); err != nil {
			return err
		}

		final, err := awaitSnapshot(cmd.Context(), client, snap.ID, wait)
		if err != nil {
			return err
		}
		return printSnapshot(final, asJSON)
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <chat-id> <question-id> <value>",
	Short: "Answer the current question of a chat",
	Long: `Answer the current question of a chat.

The value is sent as JSON when it parses as JSON, otherwise as a string.

Examples:
  intake answer 3f1c... q2 7
  intake answer 3f1c... q3 '["Front","Back"]'
  intake answer 3f1c... q4 "Since Monday"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetDuration("wait")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"questionId": args[1],
			"answer":     parseAnswerArg(args[2]),
		}
		var snap api.Snapshot
		if err := client.post(cmd.Context(), "/api/chats/"+url.PathEscape(args[0])+"/answer", body, &snap); err != nil {
			return err
		}

		final, err := awaitSnapshot(cmd.Context(), client, snap.ID, wait)
		if err != nil {
			return err
		}
		return printSnapshot(final, asJSON)
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, answerCmd} {
		c.Flags().Duration("wait", 60*time.Second, "how long to wait for the agent's reply")
		c.Flags().Bool("json", false, "print the chat snapshot as JSON")
	}
	askCmd.Flags().String("chat", "", "send the query to this chat instead of the active one")
}

// parseAnswerArg keeps JSON arrays, numbers and booleans typed and treats
// anything else as text.
func parseAnswerArg(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case []any, float64, bool:
			return v
		}
	}
	return s
}

// awaitSnapshot polls the chat until the agent call in flight has landed.
func awaitSnapshot(ctx context.Context, client *apiClient, id string, wait time.Duration) (api.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		var snap api.Snapshot
		if err := client.get(ctx, "/api/chats/"+url.PathEscape(id), &snap); err != nil {
			return api.Snapshot{}, err
		}
		if !snap.Pending {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, fmt.Errorf("no reply from agent after %s", wait)
		case <-ticker.C:
		}
	}
}

func printSnapshot(snap api.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	printStatus("Chat", "%s", snap.ID)
	printStatus("State", "%s", stateLabel(string(snap.State)))
	if snap.LastError != "" {
		printWarning("%s", snap.LastError)
	}
	if q := snap.CurrentQuestion; q != nil {
		fmt.Printf("\n%s %s\n", colorize(colorBold, q.Prompt), colorize(colorDim, "("+q.ID+", "+string(q.Type())+")"))
		for i, opt := range q.Options() {
			fmt.Printf("  %d. %s\n", i+1, opt)
		}
		describeBounds(q)
	}
	if snap.FinalAssessment != "" {
		fmt.Printf("\n%s\n%s\n", colorize(colorBold, "Assessment"), snap.FinalAssessment)
		for _, r := range snap.Recommendations {
			fmt.Printf("  • %s\n", r)
		}
	}
	return nil
}

func describeBounds(q *question.Descriptor) {
	w := q.Wire()
	if w.Min == nil && w.Max == nil {
		return
	}
	lo, hi := "-", "-"
	if w.Min != nil {
		lo = fmt.Sprint(*w.Min)
	}
	if w.Max != nil {
		hi = fmt.Sprint(*w.Max)
	}
	fmt.Printf("  range %s..%s\n", lo, hi)
}

// --- chats ---

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats on the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var list api.ChatList
		if err := client.get(cmd.Context(), "/api/chats", &list); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list.Chats) == 0 {
			fmt.Println("No chats.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, " \tID\tSTATE\tUPDATED\tTITLE")
		for _, c := range list.Chats {
			marker := " "
			if c.ID == list.ActiveID {
				marker = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, c.ID, stateLabel(string(c.State)), c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.Title)
		}
		return tw.Flush()
	},
}

func init() {
	chatsCmd.Flags().Bool("json", false, "print as JSON")
}

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or add recorded question/answer pairs",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tool records",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var recs []storage.ToolRecord
		if err := client.get(cmd.Context(), "/api/tools", &recs); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		if len(recs) == 0 {
			fmt.Println("No tool records.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tQUESTION ID\tTYPE\tQUESTION\tANSWER")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.QuestionID, r.Type, truncate(r.Question, 40), string(r.Answer))
		}
		return tw.Flush()
	},
}

var toolsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a tool record",
	Long: `Add a tool record.

Examples:
  intake tools add --question-id q1 --question "Pain level?" --type slider --answer 7
  intake tools add --question-id q2 --question "Where?" --type multi-select \
    --options Front,Back,Side --answer '["Front"]'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		qid, _ := cmd.Flags().GetString("question-id")
		mainQ, _ := cmd.Flags().GetString("main-question")
		q, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		typ, _ := cmd.Flags().GetString("type")
		optsStr, _ := cmd.Flags().GetString("options")

		if qid == "" || q == "" {
			return fmt.Errorf("--question-id and --question are required")
		}

		req := api.ToolRequest{
			QuestionID:   qid,
			MainQuestion: mainQ,
			Question:     q,
			Type:         typ,
			Answer:       answerJSON(answer),
			Options:      splitOptions(optsStr),
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var rec storage.ToolRecord
		if err := client.post(cmd.Context(), "/api/tools", req, &rec); err != nil {
			return err
		}

		printSuccess("Saved tool record %s", rec.ID)
		return nil
	},
}

func init() {
	toolsListCmd.Flags().Bool("json", false, "print as JSON")

	toolsAddCmd.Flags().String("question-id", "", "id of the question")
	toolsAddCmd.Flags().String("main-question", "", "the query that started the interview")
	toolsAddCmd.Flags().String("question", "", "question text")
	toolsAddCmd.Flags().String("answer", "", "answer, as JSON or plain text")
	toolsAddCmd.Flags().String("type", string(question.TypeText), "question type")
	toolsAddCmd.Flags().String("options", "", "comma-separated options")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsAddCmd)
}

// answerJSON passes valid JSON through and quotes anything else.
func answerJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}

func splitOptions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnchecked()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		if err := cfg.Validate(); err != nil {
			printWarning("%v", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret such as agent.gemini_api_key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable configuration keys",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
	configCmd.AddCommand(configKeysCmd)
}
