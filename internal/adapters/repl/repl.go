package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"livestock-purchasing/internal/app"
	"livestock-purchasing/internal/core"
)

var errExit = errors.New("exit")

// fieldAliases maps what a clerk types to a line field.
var fieldAliases = map[string]core.Field{
	"item":           core.FieldItem,
	"animal":         core.FieldItem,
	"class":          core.FieldClassification,
	"classification": core.FieldClassification,
	"bank":           core.FieldBank,
	"qty":            core.FieldQuantity,
	"quantity":       core.FieldQuantity,
	"weight":         core.FieldWeight,
	"kg":             core.FieldWeight,
	"price":          core.FieldUnitPrice,
	"unit_price":     core.FieldUnitPrice,
	"markup":         core.FieldMarkup,
	"note":           core.FieldNote,
	"unit_cost":      core.FieldUnitCost,
	"total":          core.FieldExtendedTotal,
}

type shell struct {
	svc     app.ApplicationService
	out     io.Writer
	kind    core.PurchaseKind
	session string
}

// Run starts the interactive REPL loop. It reads slash commands from in and
// writes everything to out until /quit or end of input.
func Run(ctx context.Context, svc app.ApplicationService, in io.Reader, out io.Writer) {
	sh := &shell{svc: svc, out: out}
	if kinds := svc.Kinds(); len(kinds) > 0 {
		sh.kind = kinds[0]
	}

	fmt.Fprintln(out, "Livestock Purchasing")
	fmt.Fprintf(out, "Purchase kind: %s. Start with /new or /open <id>, or use /help for commands.\n", sh.kind)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if !strings.HasPrefix(input, "/") {
				fmt.Fprintln(out, "Commands start with /. Type /help for the list.")
			} else if err := sh.dispatch(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return
				}
				fmt.Fprintf(out, "Error: %s\n", core.UserMessage(err))
			}
			sh.flushNotifications()
		}
		if readErr != nil {
			return
		}
	}
}

func (sh *shell) dispatch(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]
	if needsSession[cmd] && sh.session == "" {
		return errNoSession
	}

	switch cmd {
	case "kind":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /kind <cattle|misc|payment>")
			return nil
		}
		kind, err := core.ParseKind(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		sh.kind = kind
		fmt.Fprintf(sh.out, "Purchase kind: %s\n", kind)

	case "new":
		if len(args) > 0 {
			kind, err := core.ParseKind(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			sh.kind = kind
		}
		result, err := sh.svc.NewPurchase(ctx, sh.kind)
		if err != nil {
			return err
		}
		sh.replaceSession(result.SessionID)
		printSession(sh.out, result)

	case "open":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /open [kind] <purchase-id>")
			return nil
		}
		id := args[len(args)-1]
		if len(args) > 1 {
			kind, err := core.ParseKind(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			sh.kind = kind
		}
		result, err := sh.svc.OpenPurchase(ctx, sh.kind, id)
		if err != nil {
			return err
		}
		sh.replaceSession(result.SessionID)
		printSession(sh.out, result)

	case "header":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /header office=<id> supplier=<id> date=<YYYY-MM-DD> note=<text>")
			return nil
		}
		current, err := sh.current()
		if err != nil {
			return err
		}
		h := current.Header.HeaderFields
		for key, value := range keyValues(args) {
			switch key {
			case "office":
				h.OfficeRef = value
			case "supplier":
				h.SupplierRef = value
			case "date":
				h.OrderDate = value
			case "note":
				h.Note = value
			default:
				return fmt.Errorf("unknown header field %q", key)
			}
		}
		result, err := sh.svc.SetHeader(ctx, app.SetHeaderRequest{SessionID: sh.session, Header: h})
		if err != nil {
			return err
		}
		printHeader(sh.out, result)

	case "add":
		count := 1
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil {
				count = n
				args = args[1:]
			}
		}
		var defaults []app.FieldValue
		for key, value := range keyValues(args) {
			field, ok := fieldAliases[key]
			if !ok {
				return fmt.Errorf("unknown field %q", key)
			}
			defaults = append(defaults, app.FieldValue{Field: field, Value: value})
		}
		result, err := sh.svc.AddLines(ctx, app.AddLinesRequest{SessionID: sh.session, Count: count, Defaults: defaults})
		if result != nil {
			printLines(sh.out, result)
		}
		return err

	case "set":
		if len(args) < 3 {
			fmt.Fprintln(sh.out, "Usage: /set <line> <field> <value>")
			return nil
		}
		id, err := lineID(args[0])
		if err != nil {
			return err
		}
		field, ok := fieldAliases[strings.ToLower(args[1])]
		if !ok {
			return fmt.Errorf("unknown field %q", args[1])
		}
		result, err := sh.svc.SetLineField(ctx, app.SetLineFieldRequest{
			SessionID:  sh.session,
			LocalID:    id,
			FieldValue: app.FieldValue{Field: field, Value: strings.Join(args[2:], " ")},
		})
		if err != nil {
			return err
		}
		printLine(sh.out, result)

	case "save":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /save <line|all>")
			return nil
		}
		if strings.ToLower(args[0]) == "all" {
			return sh.saveAll(ctx)
		}
		id, err := lineID(args[0])
		if err != nil {
			return err
		}
		result, err := sh.svc.SaveLine(ctx, sh.session, id)
		if err != nil {
			return err
		}
		printLine(sh.out, result)

	case "del", "delete":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /del <line>")
			return nil
		}
		id, err := lineID(args[0])
		if err != nil {
			return err
		}
		result, err := sh.svc.DeleteLine(ctx, sh.session, id)
		if err != nil {
			return err
		}
		printLines(sh.out, result)

	case "submit":
		result, err := sh.svc.Submit(ctx, sh.session)
		if err != nil {
			return err
		}
		printSession(sh.out, result)

	case "reload":
		result, err := sh.svc.Reload(ctx, sh.session)
		if err != nil {
			return err
		}
		printSession(sh.out, result)

	case "show":
		result, err := sh.current()
		if err != nil {
			return err
		}
		printSession(sh.out, result)

	case "options", "opts":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /options <office|supplier|item|classification|bank> [refresh]")
			return nil
		}
		kind := core.OptionKind(strings.ToLower(args[0]))
		if len(args) > 1 && strings.ToLower(args[1]) == "refresh" {
			sh.svc.InvalidateOptions(kind)
		}
		result, err := sh.svc.ListOptions(ctx, kind)
		if err != nil {
			return err
		}
		printOptions(sh.out, result)

	case "export":
		if len(args) < 1 {
			fmt.Fprintln(sh.out, "Usage: /export <file.xlsx>")
			return nil
		}
		if err := exportTo(ctx, sh.svc, sh.session, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Exported to %s\n", args[0])

	case "help", "h":
		printHelp(sh.out)

	case "exit", "quit", "e", "q":
		if sh.session != "" {
			_ = sh.svc.CloseSession(sh.session)
		}
		return errExit

	default:
		fmt.Fprintf(sh.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

var errNoSession = errors.New("no purchase is open; use /new or /open first")

var needsSession = map[string]bool{
	"header": true, "add": true, "set": true, "save": true, "del": true, "delete": true,
	"submit": true, "reload": true, "show": true, "export": true,
}

func (sh *shell) current() (*app.SessionResult, error) {
	if sh.session == "" {
		return nil, errNoSession
	}
	return sh.svc.GetSession(sh.session)
}

// replaceSession switches to a new session and closes the previous one.
func (sh *shell) replaceSession(id string) {
	sh.flushNotifications()
	if sh.session != "" {
		_ = sh.svc.CloseSession(sh.session)
	}
	sh.session = id
}

// saveAll saves every line that is not saved yet and keeps going on failure.
func (sh *shell) saveAll(ctx context.Context) error {
	current, err := sh.current()
	if err != nil {
		return err
	}
	failed := 0
	for _, l := range current.Lines {
		if l.Status == core.LineSaved {
			continue
		}
		if _, err := sh.svc.SaveLine(ctx, sh.session, l.LocalID); err != nil {
			failed++
		}
	}
	result, err := sh.svc.GetSession(sh.session)
	if err != nil {
		return err
	}
	printLines(sh.out, result)
	if failed > 0 {
		return fmt.Errorf("%d line(s) not saved", failed)
	}
	return nil
}

func (sh *shell) flushNotifications() {
	if sh.session == "" {
		return
	}
	notes, err := sh.svc.Notifications(sh.session)
	if err != nil {
		return
	}
	printNotifications(sh.out, notes)
}

func exportTo(ctx context.Context, svc app.ApplicationService, sessionID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := svc.ExportPurchase(ctx, sessionID, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lineID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid line number %q", s)
	}
	return id, nil
}

// keyValues parses key=value arguments. A token without "=" continues the
// previous value, so "note=two words" works.
func keyValues(args []string) map[string]string {
	out := map[string]string{}
	last := ""
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			if last != "" {
				out[last] += " " + a
			}
			continue
		}
		last = strings.ToLower(key)
		out[last] = value
	}
	return out
}
