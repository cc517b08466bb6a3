package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/interview"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Manager *conversation.Manager
	Tools   ToolStore
	// ReplyTimeout bounds how long interview tools wait for the agent.
	// Zero means 60s.
	ReplyTimeout time.Duration
}

// NewMCPServer creates an MCP server with the interview tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.ReplyTimeout <= 0 {
		deps.ReplyTimeout = 60 * time.Second
	}

	s := server.NewMCPServer(
		"intake",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("intake: guided symptom interview. Start with start_interview, then answer each question with answer_question until a final assessment is returned."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("start_interview",
			mcp.WithDescription("Start a new symptom interview from a free-text complaint and return the chat with its first question."),
			mcp.WithString("query", mcp.Description("The user's complaint, e.g. 'I have a headache'"), mcp.Required()),
		),
		mcpStartInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("answer_question",
			mcp.WithDescription("Answer the current question of a chat and return the chat with the next question or the final assessment."),
			mcp.WithString("chat_id", mcp.Description("Chat id returned by start_interview"), mcp.Required()),
			mcp.WithString("question_id", mcp.Description("Id of the question being answered"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The answer. Use a JSON array for multi-select questions and yyyy-MM-dd for dates."), mcp.Required()),
		),
		mcpAnswerQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("get_interview",
			mcp.WithDescription("Return the current state of a chat."),
			mcp.WithString("chat_id", mcp.Description("Chat id"), mcp.Required()),
		),
		mcpGetInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tool_records",
			mcp.WithDescription("List every persisted question/answer record, oldest first."),
			mcp.WithNumber("limit", mcp.Description("Return only the most recent N records (default all)")),
		),
		mcpListToolRecords(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"intake://chats",
			"Chats",
			mcp.WithResourceDescription("All chats with their state and the active chat id"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceChats(deps),
	)

	return s
}

func mcpStartInterview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		store := deps.Manager.Store()
		id := store.Create()
		if err := deps.Manager.QueryTo(ctx, id, query); err != nil {
			return mcpError(fmt.Sprintf("failed to start interview: %v", err)), nil
		}
		return mcpSnapshot(awaitReply(ctx, store, id, deps.ReplyTimeout))
	}
}

func mcpAnswerQuestion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chat_id")
		if err != nil {
			return mcpError("chat_id is required"), nil
		}
		qid, err := req.RequireString("question_id")
		if err != nil {
			return mcpError("question_id is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		if err := deps.Manager.Answer(ctx, id, qid, parseToolAnswer(answer)); err != nil {
			return mcpError(fmt.Sprintf("answer rejected: %v", err)), nil
		}
		return mcpSnapshot(awaitReply(ctx, deps.Manager.Store(), id, deps.ReplyTimeout))
	}
}

func mcpGetInterview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chat_id")
		if err != nil {
			return mcpError("chat_id is required"), nil
		}
		s, ok := deps.Manager.Store().Get(id)
		if !ok {
			return mcpError(fmt.Sprintf("unknown chat %s", id)), nil
		}
		return mcpSnapshot(s, nil)
	}
}

func mcpListToolRecords(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recs, err := deps.Tools.ListTools()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list records: %v", err)), nil
		}
		if limit := req.GetInt("limit", 0); limit > 0 && limit < len(recs) {
			recs = recs[len(recs)-limit:]
		}

		b, err := json.Marshal(recs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal records: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceChats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		store := deps.Manager.Store()
		b, err := json.Marshal(newChatList(store.List(), store.ActiveID()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal chats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// parseToolAnswer decodes a JSON array of strings for multi-select
// questions. Everything else is passed through as text; numeric and date
// answers are parsed from text during validation.
func parseToolAnswer(s string) any {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return items
		}
	}
	return s
}

// sessionSource is the part of conversation.Store awaitReply reads from.
type sessionSource interface {
	Get(id string) (*interview.Session, bool)
	Subscribe(buffer int) (<-chan conversation.Event, func())
}

// replyPoll bounds how long a dropped change event can delay awaitReply.
var replyPoll = time.Second

// awaitReply blocks until chat id has no agent call outstanding, the
// timeout elapses or ctx is done, and returns the latest snapshot. Events
// only wake it up; the session is always re-read from the store.
func awaitReply(ctx context.Context, store sessionSource, id string, timeout time.Duration) (*interview.Session, error) {
	events, unsubscribe := store.Subscribe(eventBuffer)
	defer unsubscribe()

	s, ok := store.Get(id)
	if !ok {
		return nil, conversation.ErrUnknownSession
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(replyPoll)
	defer ticker.Stop()

	for s.Pending {
		done := false
		select {
		case <-ctx.Done():
			done = true
		case <-timer.C:
			done = true
		case ev := <-events:
			if ev.SessionID != id {
				continue
			}
		case <-ticker.C:
		}
		if latest, ok := store.Get(id); ok {
			s = latest
		}
		if done {
			break
		}
	}
	return s, nil
}

func mcpSnapshot(s *interview.Session, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcpError(err.Error()), nil
	}
	b, err := json.Marshal(NewSnapshot(s))
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal chat: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
