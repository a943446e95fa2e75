package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/splat"
	"github.com/couchcryptid/duct-correlation-service/internal/station"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockObsStore struct {
	obs     []domain.Observation
	loadErr error
	setVis  map[string]domain.Visibility
	setErr  error
}

func (m *mockObsStore) Load() ([]domain.Observation, error) {
	return m.obs, m.loadErr
}

func (m *mockObsStore) SetVisibility(gatewayID string, vis domain.Visibility) error {
	if m.setVis == nil {
		m.setVis = make(map[string]domain.Visibility)
	}
	m.setVis[gatewayID] = vis
	return m.setErr
}

type mockIndex struct {
	st      station.Station
	ok      bool
	queries []domain.Point
}

func (m *mockIndex) Nearest(p domain.Point) (station.Station, bool) {
	m.queries = append(m.queries, p)
	return m.st, m.ok
}

type mockProvider struct {
	index *mockIndex
	err   error
}

func (m *mockProvider) Directory(_ context.Context) (StationIndex, error) {
	return m.index, m.err
}

type soundingCall struct {
	stationID string
	date      string
}

type mockSoundings struct {
	records []domain.SoundingRecord
	err     error
	calls   []soundingCall
}

func (m *mockSoundings) RecordsFor(_ context.Context, stationID, date string) ([]domain.SoundingRecord, error) {
	m.calls = append(m.calls, soundingCall{stationID: stationID, date: date})
	return m.records, m.err
}

type mockResolver struct {
	vis    domain.Visibility
	status splat.Status
	err    error
	calls  int
}

func (m *mockResolver) Resolve(_ context.Context, _ domain.GatewayGroup) (domain.Visibility, splat.Status, error) {
	m.calls++
	return m.vis, m.status, m.err
}

type mockArtifacts struct {
	links    map[string]domain.GatewayLink
	profiles []domain.DuctProfile
	writeErr error
	saved    map[string]domain.GatewayLink
	saveErr  error
}

func (m *mockArtifacts) WriteProfile(p domain.DuctProfile) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.profiles = append(m.profiles, p)
	return "profiles/" + p.GatewayID + "_" + p.Date + ".json", nil
}

func (m *mockArtifacts) LoadLinks() map[string]domain.GatewayLink {
	if m.links == nil {
		m.links = make(map[string]domain.GatewayLink)
	}
	return m.links
}

func (m *mockArtifacts) SaveLinks(links map[string]domain.GatewayLink) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = links
	return nil
}

type ledgerPair struct {
	subject string
	date    string
}

type mockLedger struct {
	done     map[ledgerPair]bool
	marked   []ledgerPair
	persists int
}

func (m *mockLedger) IsDone(subject, date string) bool {
	return m.done[ledgerPair{subject, date}]
}

func (m *mockLedger) MarkDone(subject, date string) {
	if m.done == nil {
		m.done = make(map[ledgerPair]bool)
	}
	p := ledgerPair{subject, date}
	m.done[p] = true
	m.marked = append(m.marked, p)
}

func (m *mockLedger) Persist() error {
	m.persists++
	return nil
}

type mockPublisher struct {
	published []map[string]domain.GatewayLink
	err       error
}

func (m *mockPublisher) PublishLinks(_ context.Context, links map[string]domain.GatewayLink) error {
	m.published = append(m.published, links)
	return m.err
}
