package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formrules/pkg/testsupport"
)

// chdirTest changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdirTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}

// isolate keeps config discovery away from the developer's home directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdirTest(t, dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLint_Registration(t *testing.T) {
	dir := isolate(t)
	def := testsupport.WriteFixtureFile(t, dir, "registration.json")

	code, out, errOut := execute(t, "lint", def)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	for _, want := range []string{"Form: Farmer Registration (version 3, published)", "Dependencies:", "full_name"} {
		if !strings.Contains(out, want) {
			t.Errorf("lint output missing %q:\n%s", want, out)
		}
	}
}

func TestLint_MissingSource(t *testing.T) {
	dir := isolate(t)
	def := writeFile(t, dir, "broken.json", `{
  "form_name": "Broken",
  "fields": [
    {"name": "A", "label": "Field A", "type": "text",
     "conditional_logic": {"action": "show", "relation": "AND",
       "rules": [{"source_field": "ghost", "operator": "is", "value": "x"}]}}
  ]
}`)

	code, _, errOut := execute(t, "lint", def)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "A references unknown field(s) ghost") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestEval(t *testing.T) {
	dir := isolate(t)
	def := testsupport.WriteFixtureFile(t, dir, "registration.json")
	valid := testsupport.WriteFixtureFile(t, dir, "registration_values.json")
	invalid := writeFile(t, dir, "invalid.yaml", "full_name: \"\"\nnational_id: \"123\"\n")

	code, out, errOut := execute(t, "eval", def, valid)
	if code != 0 {
		t.Fatalf("valid answers: exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "Result: valid") {
		t.Errorf("valid answers output:\n%s", out)
	}

	code, out, _ = execute(t, "eval", def, invalid)
	if code != 1 {
		t.Fatalf("invalid answers: exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "first: full_name") {
		t.Errorf("invalid answers output:\n%s", out)
	}
	if !strings.Contains(out, "Full Name is required.") {
		t.Errorf("missing required message:\n%s", out)
	}
}

func TestSubmitAndHistory(t *testing.T) {
	dir := isolate(t)
	def := testsupport.WriteFixtureFile(t, dir, "registration.json")
	values := testsupport.WriteFixtureFile(t, dir, "registration_values.json")
	invalid := writeFile(t, dir, "invalid.json", `{"full_name": "Amina"}`)
	db := filepath.Join(dir, "data", "dfr.db")

	code, out, errOut := execute(t, "submit", def, values, "--farmer", "F-100", "--db", db)
	if code != 0 {
		t.Fatalf("submit: exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "for farmer F-100") {
		t.Errorf("submit output = %q", out)
	}

	code, _, errOut = execute(t, "submit", def, invalid, "--farmer", "F-100", "--db", db)
	if code != 1 {
		t.Fatalf("invalid submit: exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "Field 'National ID': National ID is required.") {
		t.Errorf("invalid submit stderr:\n%s", errOut)
	}

	code, out, errOut = execute(t, "history", "--farmer", "F-100", "--db", db)
	if code != 0 {
		t.Fatalf("history: exit code = %d, stderr: %s", code, errOut)
	}
	if strings.Count(out, "Farmer Registration v3") != 1 {
		t.Errorf("history should list one submission:\n%s", out)
	}
	if !strings.Contains(out, "Full Name: Amina Otieno") {
		t.Errorf("history missing responses:\n%s", out)
	}

	code, out, _ = execute(t, "history", "--farmer", "nobody", "--db", db)
	if code != 0 || !strings.Contains(out, "No submissions for farmer nobody") {
		t.Errorf("empty history: code %d output %q", code, out)
	}
}

func TestSubmit_RequiresFarmer(t *testing.T) {
	dir := isolate(t)
	def := testsupport.WriteFixtureFile(t, dir, "registration.json")
	values := testsupport.WriteFixtureFile(t, dir, "registration_values.json")

	code, _, errOut := execute(t, "submit", def, values)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "farmer") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestPoll(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/7"):
			_, _ = w.Write([]byte(`{"state":"done","total_records_in_file":4,"total_records_processed":4,"successful_records":4}`))
		default:
			_, _ = w.Write([]byte(`{"state":"error","total_records_in_file":4,"total_records_processed":1,"failed_records":1,"log_summary":"row 2: bad id"}`))
		}
	}))
	t.Cleanup(srv.Close)

	code, out, errOut := execute(t, "poll", "7", "--endpoint", srv.URL, "--interval", "10ms")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "[100%]") {
		t.Errorf("poll output = %q", out)
	}

	code, _, errOut = execute(t, "poll", "8", "--endpoint", srv.URL, "--interval", "10ms")
	if code != 1 {
		t.Fatalf("failed job: exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "row 2: bad id") {
		t.Errorf("stderr = %q", errOut)
	}
}
