package console

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/cache"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/pagination"
	"github.com/goliatone/go-clinic-console/pkg/testsupport"
	"github.com/goliatone/go-clinic-console/store"
)

func newDeps(t *testing.T, srv *testsupport.ClinicServer) Deps {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.Capacity = 128
	cfg.NumShards = 2
	c, err := cache.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return Deps{
		Cache:  c,
		Client: apiclient.New(srv.URL),
		Store:  store.New(),
	}
}

func openDoctors(t *testing.T, d Deps) *Page[clinic.Doctor, clinic.Doctor] {
	t.Helper()
	p, err := Doctors(d)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	ctx := context.Background()
	p.Open(ctx)
	require.NoError(t, p.Wait(ctx))
	return p
}

func TestPage_EndToEndDoctorScenario(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Record{"_id": "d1"})

	d := newDeps(t, srv)
	p := openDoctors(t, d)

	reqs := srv.RequestsFor("get-doctors")
	require.Len(t, reqs, 1)
	assert.Equal(t, "page=1&limit=10", reqs[0].Query)

	page, ok := p.Slice.Collection()
	require.True(t, ok)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "d1", page.Results[0].ID())
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, page, p.Resource.Value())
	assert.False(t, p.Slice.Loading())

	rows := p.Grid.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "d1", rows[0].ID)
	assert.Equal(t, 1, p.Grid.RowCount())

	var buf bytes.Buffer
	require.NoError(t, p.Grid.Render(&buf))
	assert.Contains(t, buf.String(), "Doctors\n")
	assert.Contains(t, buf.String(), "page 1 of 1 · 1 rows")
}

func TestPage_SearchScenario(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	records := append(testsupport.Doctors(45), testsupport.NamedRecords("smith", "username", "John Smith")...)
	srv.AddCollection("get-doctors", testsupport.ShapeTotal, "username", records...)

	d := newDeps(t, srv)
	p := openDoctors(t, d)
	ctx := context.Background()

	require.NoError(t, p.Grid.ChangePage(ctx, 3, 10))
	require.NoError(t, p.Wait(ctx))
	require.Equal(t, pagination.State{Page: 3, PageSize: 10}, p.Controller.State())

	st := p.Controller.Search(ctx, "smith")
	assert.Equal(t, pagination.State{Page: 1, PageSize: 10, Search: "smith"}, st)
	assert.Contains(t, p.Resource.Key(), "search=smith")

	reqs := srv.RequestsFor("get-doctors")
	assert.Equal(t, "page=1&limit=10&search=smith", reqs[len(reqs)-1].Query)

	page, _ := p.Slice.Collection()
	require.Len(t, page.Results, 1)
	assert.Equal(t, "John Smith", page.Results[0].Username)
	assert.Equal(t, 1, p.Grid.RowCount())
}

func TestPage_PageSizeChangeResetsPage(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Doctors(45)...)

	d := newDeps(t, srv)
	p := openDoctors(t, d)
	ctx := context.Background()

	require.NoError(t, p.Grid.ChangePage(ctx, 2, 10))
	require.NoError(t, p.Grid.ChangePage(ctx, 2, 20))
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, pagination.State{Page: 1, PageSize: 20}, p.Controller.State())
	page, _ := p.Slice.Collection()
	assert.Len(t, page.Results, 20)

	assert.ErrorIs(t, p.Grid.ChangePage(ctx, 1, 7), pagination.ErrInvalidPageSize)
}

func TestPage_ClampsWhenCollectionShrinks(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Doctors(7)...)

	d := newDeps(t, srv)
	p := openDoctors(t, d)
	ctx := context.Background()

	p.Controller.SetPage(ctx, 5)
	require.NoError(t, p.Wait(ctx))
	// the page 5 response moves the view back to page 1
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, 1, p.Controller.State().Page)
	page, _ := p.Slice.Collection()
	assert.Len(t, page.Results, 7)
}

func TestPage_SubmitRefetches(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Doctors(3)...)
	srv.AddMutation("create-doctor", "get-doctors", http.StatusCreated, "Doctor created")

	d := newDeps(t, srv)
	p := openDoctors(t, d)
	ctx := context.Background()

	resp, err := p.Submit(ctx, clinic.Doctor{Username: "wilson"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Doctor created", resp.Message)

	page, _ := p.Slice.Collection()
	assert.Equal(t, 4, page.Count)
	assert.Len(t, page.Results, 4)
	assert.Equal(t, 4, srv.Len("get-doctors"))
}

func TestPage_SubmitFailureSkipsRefetch(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Doctors(3)...)
	srv.AddMutation("update-doctor", "get-doctors", http.StatusConflict, "Email already exists")

	d := newDeps(t, srv)
	p := openDoctors(t, d)

	_, err := p.Submit(context.Background(), clinic.Doctor{Record: clinic.Record{ObjectID: "doc-01"}}, true)
	require.Error(t, err)
	assert.Equal(t, "Email already exists", apiclient.UserMessage(err))
	assert.Equal(t, err, p.Modify.Err())
	assert.Len(t, srv.RequestsFor("get-doctors"), 1)
}

func TestPage_FetchErrorKeepsGrid(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("get-doctors", testsupport.ShapeCount, "username", testsupport.Doctors(3)...)

	d := newDeps(t, srv)
	p := openDoctors(t, d)

	writes := p.Slice.Writes()
	srv.FailNext("get-doctors", http.StatusServiceUnavailable, "maintenance")
	p.Resource.Refetch(context.Background())

	st := p.Resource.State()
	require.Error(t, st.Err)
	assert.Len(t, p.Grid.Rows(), 3)
	assert.Equal(t, writes, p.Slice.Writes(), "unchanged page is not rewritten")
}

func TestPages_AllEntities(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	d := newDeps(t, srv)

	var titles []string
	pat, err := Patients(d)
	require.NoError(t, err)
	titles = append(titles, pat.Grid.Title())
	app, err := Appointments(d)
	require.NoError(t, err)
	titles = append(titles, app.Grid.Title())
	spe, err := Specialities(d)
	require.NoError(t, err)
	titles = append(titles, spe.Grid.Title())
	qua, err := Qualifications(d)
	require.NoError(t, err)
	titles = append(titles, qua.Grid.Title())
	sym, err := Symptoms(d)
	require.NoError(t, err)
	titles = append(titles, sym.Grid.Title())

	assert.Equal(t, "Patients Appointments Specialities Qualifications Symptoms", strings.Join(titles, " "))
	assert.Equal(t, []string{"appointment", "patient", "qualification", "speciality", "symptom"}, d.Store.Entities())

	_, err = Symptoms(d)
	assert.ErrorIs(t, err, store.ErrDuplicateSlice)
}

func TestPages_LookupAndLoad(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()
	srv.AddCollection("symptoms/get-symptoms", testsupport.ShapePages, "name",
		testsupport.NamedRecords("sym", "name", "Cough", "Fever")...)
	srv.AddMutation("symptoms/create-symptoms", "symptoms/get-symptoms", http.StatusOK, "Symptom created")

	d := newDeps(t, srv)
	ps, err := NewPages(d)
	require.NoError(t, err)
	defer ps.Close()

	require.Len(t, ps.All(), 6)
	_, ok := ps.Lookup("unicorns")
	assert.False(t, ok)

	v, ok := ps.Lookup("Symptoms")
	require.True(t, ok)
	assert.Equal(t, "symptom", v.Name())

	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Contains(t, buf.String(), "Cough")
	assert.Contains(t, buf.String(), "Fever")

	_, err = v.SubmitJSON(ctx, []byte(`{"name":"Headache"}`), false)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, v.Render(&buf))
	assert.Contains(t, buf.String(), "Headache")

	_, err = v.SubmitJSON(ctx, []byte(`{`), false)
	assert.Error(t, err)
}

func TestPages_LoadReportsFetchError(t *testing.T) {
	srv := testsupport.NewClinicServer()
	defer srv.Close()

	d := newDeps(t, srv)
	p, err := Patients(d)
	require.NoError(t, err)
	defer p.Close()

	err = p.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}
