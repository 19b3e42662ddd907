package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-clinic-console/metrics/prom"
	"github.com/goliatone/go-clinic-console/pagination"
	"github.com/goliatone/go-clinic-console/pkg/testsupport"
)

func newClinic(t *testing.T) *testsupport.ClinicServer {
	t.Helper()
	srv := testsupport.NewClinicServer()
	t.Cleanup(srv.Close)
	records := append(testsupport.Doctors(12), testsupport.NamedRecords("smith", "username", "John Smith")...)
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", records...)
	srv.AddMutation("create-doctor", "get-doctors", http.StatusCreated, "Doctor created")
	srv.AddMutation("update-doctor", "get-doctors", http.StatusConflict, "Email already exists")
	srv.AddLookup("get-doctor-by-id", "get-doctors")
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEntities(t *testing.T) {
	out, err := run(t, "", "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "doctors")
	assert.Contains(t, out, "speciality/get-speciality")
	assert.Contains(t, out, "SYMPTOM_URL")
}

func TestList(t *testing.T) {
	srv := newClinic(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
	}{
		{
			name:     "first page",
			args:     []string{"list", "doctors"},
			contains: []string{"Doctors", "doctor-01", "doctor-10", "page 1 of 2 · 13 rows"},
			absent:   []string{"doctor-11"},
		},
		{
			name:     "second page",
			args:     []string{"list", "doctor", "--page", "2"},
			contains: []string{"doctor-11", "John Smith", "page 2 of 2"},
			absent:   []string{"doctor-01"},
		},
		{
			name:     "page size",
			args:     []string{"list", "Doctors", "--limit", "20"},
			contains: []string{"doctor-01", "doctor-12", "page 1 of 1"},
		},
		{
			name:     "search",
			args:     []string{"list", "doctors", "--search", " smith "},
			contains: []string{"John Smith", `page 1 of 1 · 1 rows · search "smith"`},
			absent:   []string{"doctor-01"},
		},
		{
			name:     "search keeps page",
			args:     []string{"list", "doctors", "--search", "doctor", "--page", "2"},
			contains: []string{"doctor-11", "doctor-12", `page 2 of 2 · 12 rows · search "doctor"`},
			absent:   []string{"doctor-01", "John Smith"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", append(tt.args, "--api-url", srv.URL)...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestList_Errors(t *testing.T) {
	srv := newClinic(t)

	_, err := run(t, "", "list", "unicorns", "--api-url", srv.URL)
	assert.ErrorContains(t, err, `unknown entity "unicorns"`)

	_, err = run(t, "", "list", "doctors", "--limit", "7", "--api-url", srv.URL)
	assert.ErrorIs(t, err, pagination.ErrInvalidPageSize)

	srv.FailNext("get-doctors", http.StatusBadGateway, "upstream down")
	_, err = run(t, "", "list", "doctors", "--api-url", srv.URL)
	assert.ErrorContains(t, err, "upstream down")

	_, err = run(t, "", "list")
	assert.Error(t, err)
}

func TestList_RequiresAPIURL(t *testing.T) {
	t.Setenv("CLINIC_API_URL", "")
	_, err := run(t, "", "list", "doctors")
	assert.ErrorContains(t, err, "no API URL configured")
}

func TestShow(t *testing.T) {
	srv := newClinic(t)

	out, err := run(t, "", "show", "doctors", "doc-03", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "FIELD")
	assert.Regexp(t, `(?m)^_id\s+doc-03$`, out)
	assert.Regexp(t, `(?m)^username\s+doctor-03$`, out)
	assert.Regexp(t, `(?m)^experienceYears\s+3$`, out)
	require.Len(t, srv.RequestsFor("get-doctor-by-id/doc-03"), 1)
}

func TestShow_Errors(t *testing.T) {
	srv := newClinic(t)

	_, err := run(t, "", "show", "doctor", "nope", "--api-url", srv.URL)
	assert.ErrorContains(t, err, "Record not found")

	_, err = run(t, "", "show", "symptom", "sym-01", "--api-url", srv.URL)
	assert.ErrorContains(t, err, "cannot be fetched by id")

	_, err = run(t, "", "show", "unicorn", "u1", "--api-url", srv.URL)
	assert.ErrorContains(t, err, `unknown entity "unicorn"`)

	_, err = run(t, "", "show", "doctor")
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	srv := newClinic(t)

	out, err := run(t, "", "create", "doctor", "--api-url", srv.URL, "--data", `{"username":"wilson","email":"w@clinic.test"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Doctor created")
	assert.Equal(t, 14, srv.Len("get-doctors"))

	out, err = run(t, `{"username":"house"}`, "create", "doctor", "--api-url", srv.URL, "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Doctor created")
	assert.Equal(t, 15, srv.Len("get-doctors"))
}

func TestCreate_PayloadErrors(t *testing.T) {
	srv := newClinic(t)

	_, err := run(t, "", "create", "doctor", "--api-url", srv.URL)
	assert.ErrorContains(t, err, "a payload is required")

	_, err = run(t, "", "create", "doctor", "--api-url", srv.URL, "--data", "{}", "--file", "x.json")
	assert.ErrorContains(t, err, "either --data or --file")

	_, err = run(t, "", "create", "doctor", "--api-url", srv.URL, "--data", "{")
	assert.Error(t, err)
}

func TestUpdate_ShowsServiceMessage(t *testing.T) {
	srv := newClinic(t)

	_, err := run(t, "", "update", "doctor", "--api-url", srv.URL, "--data", `{"_id":"doc-01","email":"taken@clinic.test"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already exists")
}

func TestBrowse(t *testing.T) {
	srv := newClinic(t)

	out, err := run(t, "n\ng 9\nbogus\ns smith\nh\nq\n", "browse", "doctors", "--api-url", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "page 1 of 2 · 13 rows")
	assert.Contains(t, out, "page 2 of 2 · 13 rows")
	assert.Contains(t, out, `! unknown command "bogus"`)
	assert.Contains(t, out, `search "smith"`)
	assert.Contains(t, out, "l <size>")
}

func TestBrowse_EndOfInput(t *testing.T) {
	srv := newClinic(t)

	out, err := run(t, "l 20\n", "browse", "doctors", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "page 1 of 1 · 13 rows")
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.New(reg, "clinicadm", "cache", nil)
	m.Hit()

	ts := httptest.NewServer(metricsHandler(reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "clinicadm_cache_hits_total 1")
}

func TestList_ConsolePageSizeDefault(t *testing.T) {
	srv := newClinic(t)

	t.Setenv("CLINIC_PAGE_SIZE", "20")
	out, err := run(t, "", "list", "doctors", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "page 1 of 1 · 13 rows")

	// not a doctor page size: the entity default is kept
	t.Setenv("CLINIC_PAGE_SIZE", "7")
	out, err = run(t, "", "list", "doctors", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "page 1 of 2 · 13 rows")
}
