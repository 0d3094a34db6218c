package repl_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livestock-purchasing/internal/adapters/repl"
	"livestock-purchasing/internal/adapters/web"
	"livestock-purchasing/internal/app"
	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/masterdata"
	"livestock-purchasing/internal/remote"
)

func newApp(t *testing.T) app.ApplicationService {
	t.Helper()
	store := backend.NewMemoryStore()
	store.SetOptions(core.OptionItem, []core.Option{{Value: "feed", Label: "Pakan"}})
	srv := httptest.NewServer(web.NewHandler(backend.NewService(store, nil), "", ""))
	t.Cleanup(srv.Close)

	var backends []app.PurchaseBackend
	var options core.OptionProvider
	for _, kind := range core.Kinds() {
		p, _ := core.DefaultProfile(kind)
		c, err := remote.New(p, remote.Options{BaseURL: srv.URL + "/api"})
		if err != nil {
			t.Fatal(err)
		}
		backends = append(backends, c)
		options = c
	}
	return app.NewAppService(backends, masterdata.NewCachedProvider(options, time.Minute))
}

func run(t *testing.T, svc app.ApplicationService, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	repl.Run(context.Background(), svc, strings.NewReader(strings.Join(script, "\n")+"\n"), &out)
	return out.String()
}

func TestRun_AddModePurchase(t *testing.T) {
	export := filepath.Join(t.TempDir(), "purchase.xlsx")
	out := run(t, newApp(t),
		"/new misc",
		"/header office=OFF-1 supplier=SUP-1 date=2024-03-15 note=lot A",
		"/add 2 item=feed",
		"/set 1 qty 3",
		"/set 1 price 100.000",
		"/set 1 markup 12,5",
		"/set 2 qty 2",
		"/set 2 price 500",
		"/save 1",
		"/submit",
		"/show",
		"/export "+export,
		"/quit",
	)

	for _, want := range []string{
		"MISC PURCHASE  [add mode]",
		"lot A",
		"[INFO] line 1: line kept until the purchase is submitted",
		"[SUCCESS] purchase saved",
		"[edit mode]",
		"337.500",
		"338.500",
		"Exported to " + export,
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}
	if info, err := os.Stat(export); err != nil || info.Size() == 0 {
		t.Errorf("export file: %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	out := run(t, newApp(t),
		"hello",
		"/show",
		"/new",
		"/add",
		"/set 1 total 5",
		"/set 1 colour red",
		"/set x qty 1",
		"/submit",
		"/bogus",
	)

	for _, want := range []string{
		"Commands start with /.",
		"no purchase is open",
		"CATTLE PURCHASE",
		"derived field cannot be edited",
		`unknown field "colour"`,
		`invalid line number "x"`,
		"validation failed",
		"[ERROR]",
		"Unknown command: /bogus",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}
}

func TestRun_OptionsAndEditMode(t *testing.T) {
	svc := newApp(t)
	out := run(t, svc,
		"/options item",
		"/kind payment",
		"/new",
		"/header office=OFF-1 supplier=SUP-1 date=2024-03-15",
		"/add bank=B1 qty=1 price=250.000",
		"/submit",
		"/add bank=B2 qty=2 price=100",
		"/save all",
		"/del 1",
		"/reload",
	)

	for _, want := range []string{
		"Pakan",
		"PAYMENT PURCHASE",
		"[SUCCESS] purchase saved",
		"[SUCCESS] line 2: line saved",
		"[SUCCESS] line 1: line deleted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}

	// After the reload only the second installment is left.
	reloaded := out[strings.LastIndex(out, "PAYMENT PURCHASE"):]
	if strings.Contains(reloaded, "250.000") || !strings.Contains(reloaded, "B2") {
		t.Errorf("reloaded purchase\n%s", reloaded)
	}
}
