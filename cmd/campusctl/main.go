package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"

	campusv1 "github.com/matheus3301/campusmsg/internal/api/campusv1"
	"github.com/matheus3301/campusmsg/internal/session"
	"github.com/matheus3301/campusmsg/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		cmdWatch(ctx, c, args[1:], *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	out := printer{json: *jsonFlag}
	switch args[0] {
	case "status":
		cmdStatus(ctx, c, out)
	case "conversations", "convs":
		cmdConversations(ctx, c, args[1:], out, false)
	case "active":
		cmdConversations(ctx, c, args[1:], out, true)
	case "users":
		need(args, 2, "users <query>")
		cmdUsers(ctx, c, strings.Join(args[1:], " "), out)
	case "unread":
		cmdUnread(ctx, c, out)
	case "open":
		need(args, 2, "open <peer>")
		cmdOpen(ctx, c, args[1], out)
	case "messages":
		cmdMessages(ctx, c, args[1:], out)
	case "close":
		_, err := c.Message.CloseChat(ctx, &emptypb.Empty{})
		check(err)
	case "send":
		need(args, 3, "send <peer> <text>")
		cmdSend(ctx, c, args[1], strings.Join(args[2:], " "), out)
	case "edit":
		need(args, 3, "edit <message-id> <text>")
		resp, err := c.Message.Edit(ctx, &campusv1.EditRequest{MessageID: parseID(args[1]), Text: strings.Join(args[2:], " ")})
		check(err)
		out.message(resp.Message)
	case "unsend":
		need(args, 2, "unsend <message-id>")
		resp, err := c.Message.Unsend(ctx, &campusv1.MessageRequest{MessageID: parseID(args[1])})
		check(err)
		out.message(resp.Message)
	case "can":
		need(args, 2, "can <message-id>")
		cmdEligibility(ctx, c, parseID(args[1]), out)
	case "read":
		req := &campusv1.MarkReadRequest{}
		if len(args) > 1 {
			req.PeerKey = args[1]
		}
		_, err := c.Message.MarkRead(ctx, req)
		check(err)
	case "search":
		need(args, 2, "search <text>")
		cmdSearch(ctx, c, strings.Join(args[1:], " "), out)
	case "pause", "resume":
		_, err := c.Session.SetForeground(ctx, &campusv1.SetForegroundRequest{Foreground: args[0] == "resume"})
		check(err)
	case "touch":
		_, err := c.Session.Touch(ctx, &emptypb.Empty{})
		check(err)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: campusctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                   Show session status")
	fmt.Fprintln(os.Stderr, "  conversations [more]     List conversations (more loads the next page)")
	fmt.Fprintln(os.Stderr, "  active [more]            List active users")
	fmt.Fprintln(os.Stderr, "  users <query>            Search users on the backend")
	fmt.Fprintln(os.Stderr, "  unread                   Show the unread total")
	fmt.Fprintln(os.Stderr, "  open <peer>              Open a chat and print it")
	fmt.Fprintln(os.Stderr, "  messages [older]         Print the open chat")
	fmt.Fprintln(os.Stderr, "  close                    Close the open chat")
	fmt.Fprintln(os.Stderr, "  send <peer> <text>       Send a message")
	fmt.Fprintln(os.Stderr, "  edit <id> <text>         Edit one of your messages")
	fmt.Fprintln(os.Stderr, "  unsend <id>              Unsend one of your messages")
	fmt.Fprintln(os.Stderr, "  can <id>                 Show edit/unsend eligibility")
	fmt.Fprintln(os.Stderr, "  read [peer]              Mark a chat read")
	fmt.Fprintln(os.Stderr, "  search <text>            Search cached messages")
	fmt.Fprintln(os.Stderr, "  pause | resume           Pause or resume polling")
	fmt.Fprintln(os.Stderr, "  touch                    Report user activity")
	fmt.Fprintln(os.Stderr, "  watch [prefix...]        Stream daemon updates")
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "usage: campusctl %s\n", usage)
		os.Exit(1)
	}
}

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "error: invalid message id %q\n", s)
		os.Exit(1)
	}
	return id
}

func cmdStatus(ctx context.Context, c *client.Client, out printer) {
	resp, err := c.Session.GetSessionStatus(ctx, &emptypb.Empty{})
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("Session:  %s\n", resp.Session)
	fmt.Printf("User:     %s\n", resp.User)
	fmt.Printf("Status:   %s\n", resp.Status)
	fmt.Printf("Backend:  %s\n", resp.Backend)
	fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Printf("Jobs:     %s\n", strings.Join(resp.Jobs, ", "))
	fmt.Printf("Paused:   %v\n", resp.Paused)
	fmt.Printf("Cached:   %d conversations\n", resp.CachedConversations)
	if resp.OpenChat != "" {
		fmt.Printf("Open:     %s\n", resp.OpenChat)
	}
	if resp.LastChat != "" {
		fmt.Printf("Last:     %s %s\n", resp.LastChat, resp.LastChatName)
	}
	if resp.ConsecutiveFailures > 0 {
		fmt.Printf("Failures: %d (%s)\n", resp.ConsecutiveFailures, resp.LastError)
	}
	if g := resp.Gate; g != nil && (g.Editing || g.MenuOpen || g.InFlight != "") {
		fmt.Printf("Gate:     editing=%v menu=%v in_flight=%s\n", g.Editing, g.MenuOpen, g.InFlight)
	}
}

func cmdConversations(ctx context.Context, c *client.Client, args []string, out printer, active bool) {
	more := len(args) > 0 && args[0] == "more"
	var (
		resp *campusv1.ListConversationsResponse
		err  error
	)
	switch {
	case active && more:
		resp, err = c.Chat.LoadMoreActiveUsers(ctx, &emptypb.Empty{})
	case active:
		resp, err = c.Chat.ListActiveUsers(ctx, &emptypb.Empty{})
	case more:
		resp, err = c.Chat.LoadMoreConversations(ctx, &emptypb.Empty{})
	default:
		resp, err = c.Chat.ListConversations(ctx, &emptypb.Empty{})
	}
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, conv := range resp.Conversations {
		online := " "
		if conv.IsOnline {
			online = "●"
		}
		unread := ""
		if conv.UnreadBadge != "" {
			unread = "(" + conv.UnreadBadge + ")"
		}
		fmt.Printf("%s %-16s %-24s %-6s %s\n", online, conv.Key, conv.Name, unread, oneLine(conv.LastMessage, 50))
	}
	if resp.PageInfo.GetHasMore() {
		fmt.Printf("page %d, more available\n", resp.PageInfo.GetPage())
	}
}

func cmdUsers(ctx context.Context, c *client.Client, query string, out printer) {
	resp, err := c.Chat.SearchUsers(ctx, &campusv1.SearchUsersRequest{Query: query})
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	if len(resp.Users) == 0 {
		fmt.Println("No users found.")
		return
	}
	for _, u := range resp.Users {
		fmt.Printf("%-16s %s\n", u.Key, u.Name)
	}
}

func cmdUnread(ctx context.Context, c *client.Client, out printer) {
	resp, err := c.Chat.UnreadTotal(ctx, &emptypb.Empty{})
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	fmt.Println(resp.Count)
}

func cmdOpen(ctx context.Context, c *client.Client, peer string, out printer) {
	resp, err := c.Message.OpenChat(ctx, &campusv1.OpenChatRequest{PeerKey: peer})
	check(err)
	out.thread(resp)
}

func cmdMessages(ctx context.Context, c *client.Client, args []string, out printer) {
	var (
		resp *campusv1.ThreadResponse
		err  error
	)
	if len(args) > 0 && args[0] == "older" {
		resp, err = c.Message.LoadOlderMessages(ctx, &emptypb.Empty{})
	} else {
		resp, err = c.Message.ListMessages(ctx, &emptypb.Empty{})
	}
	check(err)
	out.thread(resp)
}

// cmdSend opens peer's chat for the send and closes it again unless it
// was already open. It refuses to switch away from another open chat.
func cmdSend(ctx context.Context, c *client.Client, peer, text string, out printer) {
	st, err := c.Session.GetSessionStatus(ctx, &emptypb.Empty{})
	check(err)
	if st.OpenChat != "" && st.OpenChat != peer {
		check(fmt.Errorf("chat with %s is open; close it first", st.OpenChat))
	}
	if st.OpenChat == "" {
		_, err := c.Message.OpenChat(ctx, &campusv1.OpenChatRequest{PeerKey: peer})
		check(err)
		defer func() { _, _ = c.Message.CloseChat(context.Background(), &emptypb.Empty{}) }()
	}
	resp, err := c.Message.Send(ctx, &campusv1.SendRequest{Text: text})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	out.message(resp.Message)
}

func cmdEligibility(ctx context.Context, c *client.Client, id int64, out printer) {
	resp, err := c.Message.Eligibility(ctx, &campusv1.MessageRequest{MessageID: id})
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("edit: %v  unsend: %v  remaining: %s\n", resp.CanEdit, resp.CanUnsend,
		(time.Duration(resp.RemainingMs) * time.Millisecond).Round(time.Second))
}

func cmdSearch(ctx context.Context, c *client.Client, query string, out printer) {
	resp, err := c.Message.SearchMessages(ctx, &campusv1.SearchMessagesRequest{Query: query, Limit: 50})
	check(err)
	if out.json {
		outputJSON(resp)
		return
	}
	if len(resp.Results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range resp.Results {
		fmt.Printf("%-16s %6d  %s\n", r.PeerKey, r.Message.ID, oneLine(r.Snippet, 80))
	}
}

func cmdWatch(ctx context.Context, c *client.Client, prefixes []string, jsonOut bool) {
	stream, err := c.Chat.WatchUpdates(ctx, &campusv1.WatchRequest{Prefixes: prefixes})
	check(err)
	for {
		upd, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			check(err)
		}
		if jsonOut {
			outputJSON(upd)
			continue
		}
		at := time.UnixMilli(upd.OccurredAtUnixMs).Format("15:04:05")
		fmt.Printf("%s %-26s %s\n", at, upd.Kind, summarize(upd))
	}
}

func summarize(upd *campusv1.Update) string {
	var parts []string
	for _, name := range []string{"peer_key", "client_id", "reason", "from", "to"} {
		if v := upd.Field(name); v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

type printer struct {
	json bool
}

func (p printer) message(m *campusv1.Message) {
	if p.json {
		outputJSON(m)
		return
	}
	printMessage(m)
}

func (p printer) thread(t *campusv1.ThreadResponse) {
	if p.json {
		outputJSON(t)
		return
	}
	if t.PeerKey != "" {
		fmt.Printf("Chat with %s\n", t.PeerKey)
	}
	if len(t.Messages) == 0 {
		fmt.Println("No messages.")
	}
	for _, m := range t.Messages {
		printMessage(m)
	}
	if t.PageInfo.GetHasMore() {
		fmt.Println("(older messages available: campusctl messages older)")
	}
}

func printMessage(m *campusv1.Message) {
	if m == nil {
		return
	}
	at := time.UnixMilli(m.TimestampUnixMs).Format("2006-01-02 15:04")
	who := m.SenderKey
	if m.FromMe {
		who = "me"
	}
	var flags []string
	if m.State != campusv1.StateConfirmed {
		flags = append(flags, m.State)
	}
	if m.IsEdited {
		flags = append(flags, "edited")
	}
	if m.IsSeen {
		flags = append(flags, "seen")
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " [" + strings.Join(flags, ",") + "]"
	}
	fmt.Printf("%6d %s %-14s %s%s\n", m.ID, at, who, oneLine(m.Text, 0), suffix)
}

// oneLine flattens s and clips it to n runes when n > 0.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); n > 0 && len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
