package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/geo"
	"github.com/sells-group/carte/internal/viewer"
)

func createSession(t *testing.T, s *testServer) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[createSessionResponse](t, rr)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, 3, resp.Snapshot.Visible)
	return resp.ID
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id

	rr := s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[viewer.Snapshot](t, rr)
	assert.Len(t, snap.Offices, 7)
	assert.Len(t, snap.Regions, 2)

	rr = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSession_UnknownID(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/sessions/nope/clear", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "session_not_found")
}

func TestSession_RegionClickFlow(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/" + createSession(t, s)

	rr := s.do(t, http.MethodPost, base+"/region-filter", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[viewer.Snapshot](t, rr).State.RegionFilter)

	rr = s.do(t, http.MethodPost, base+"/regions/74/click", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	click := decode[regionClickResponse](t, rr)
	require.NotNil(t, click.Bounds)
	assert.Equal(t, viewer.Bounds{South: 45, West: 6, North: 46, East: 7}, *click.Bounds)
	assert.Equal(t, "74", click.Snapshot.State.SelectedCode)
	assert.Equal(t, 2, click.Snapshot.Visible)
	assert.Equal(t, "— département: 74", click.Snapshot.RegionStat)

	rr = s.do(t, http.MethodGet, base+"/regions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	features, err := geo.DecodeGeoJSON(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "2", jsonString(features[0].Properties["count"]))

	rr = s.do(t, http.MethodPost, base+"/regions/74/click", nil)
	assert.Empty(t, decode[regionClickResponse](t, rr).Snapshot.State.SelectedCode)
}

func TestSession_ProjectAndOfficeClicks(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/" + createSession(t, s)

	rr := s.do(t, http.MethodPost, base+"/offices/0/click", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[viewer.Snapshot](t, rr)
	assert.Equal(t, antenna.AlpesCentreEst, snap.State.FocusedAntenna)
	require.NotNil(t, snap.Panel)
	assert.Equal(t, viewer.KindOffice, snap.Panel.Ref.Kind)

	rr = s.do(t, http.MethodPost, base+"/projects/0/click", map[string]float64{"zoom": 8})
	require.Equal(t, http.StatusOK, rr.Code)
	click := decode[projectClickResponse](t, rr)
	assert.Equal(t, viewer.FlyTo{Lat: 45.9, Lon: 6.1, Zoom: 14}, click.FlyTo)
	assert.Empty(t, click.Snapshot.State.FocusedAntenna)
	require.NotNil(t, click.Snapshot.Panel)
	assert.Equal(t, "Station", click.Snapshot.Panel.Title)

	rr = s.do(t, http.MethodPost, base+"/projects/1/click", nil)
	assert.Equal(t, http.StatusOK, rr.Code, "body is optional")

	rr = s.do(t, http.MethodPost, base+"/projects/2/click", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "no marker without coordinates")
	rr = s.do(t, http.MethodPost, base+"/projects/x/click", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodPost, base+"/offices/42/click", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/map/click", nil)
	snap = decode[viewer.Snapshot](t, rr)
	assert.Nil(t, snap.Panel)
	assert.Nil(t, snap.Selected)

	s.do(t, http.MethodPost, base+"/offices/6/click", nil)
	rr = s.do(t, http.MethodPost, base+"/panel/close", nil)
	assert.Nil(t, decode[viewer.Snapshot](t, rr).Panel)
}

func TestSession_FiltersAndClear(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/" + createSession(t, s)

	rr := s.do(t, http.MethodPost, base+"/categories", map[string]any{"value": "AMO", "checked": false})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[viewer.Snapshot](t, rr).Visible)

	rr = s.do(t, http.MethodPost, base+"/categories", map[string]any{"value": "ZZZ", "checked": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/categories", `{"value":"AMO","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/query", map[string]string{"q": "port"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "port", decode[viewer.Snapshot](t, rr).State.Query)

	assert.Eventually(t, func() bool {
		rr := s.do(t, http.MethodGet, base, nil)
		snap := decode[viewer.Snapshot](t, rr)
		return !snap.Pending && snap.Visible == 1
	}, time.Second, 5*time.Millisecond)

	rr = s.do(t, http.MethodPost, base+"/offices", map[string]bool{"enabled": false})
	assert.Empty(t, decode[viewer.Snapshot](t, rr).Offices)

	rr = s.do(t, http.MethodPost, base+"/clear", nil)
	snap := decode[viewer.Snapshot](t, rr)
	assert.Empty(t, snap.State.Query)
	assert.Equal(t, []string{"AMO", "MOM", "EXP"}, snap.State.Categories)
	assert.Equal(t, 3, snap.Visible)
	assert.Empty(t, snap.Offices, "clear leaves the offices toggle alone")

	rr = s.do(t, http.MethodPost, base+"/query", "not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
