package crm

import (
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
)

// Attribute keys used when CRM entities are stored as records
const (
	AttrCompany   = "company"
	AttrClient    = "client"
	AttrMandateID = "mandate_id"
)

// Lead is a sales lead
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	StageID string `json:"stage_id"`
	Version int64  `json:"version"`
}

// Mandate is an acquisition mandate signed with a client
type Mandate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Client  string `json:"client,omitempty"`
	StageID string `json:"stage_id"`
	Version int64  `json:"version"`
}

// Target is a company approached on behalf of a mandate
type Target struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MandateID string `json:"mandate_id,omitempty"`
	StageID   string `json:"stage_id"`
	Version   int64  `json:"version"`
}

// LeadFromRecord converts a stored record to a Lead.
func LeadFromRecord(r store.Record) Lead {
	return Lead{ID: r.ID, Name: r.Title, Company: r.Attr(AttrCompany), StageID: r.StageID, Version: r.Version}
}

// Record converts the lead to its stored form.
func (l Lead) Record() store.Record {
	return store.Record{
		ID:         l.ID,
		Pipeline:   string(pipeline.PipelineLead),
		StageID:    l.StageID,
		Title:      l.Name,
		Attributes: map[string]string{AttrCompany: l.Company},
		Version:    l.Version,
	}
}

// MandateFromRecord converts a stored record to a Mandate.
func MandateFromRecord(r store.Record) Mandate {
	return Mandate{ID: r.ID, Title: r.Title, Client: r.Attr(AttrClient), StageID: r.StageID, Version: r.Version}
}

// Record converts the mandate to its stored form.
func (m Mandate) Record() store.Record {
	return store.Record{
		ID:         m.ID,
		Pipeline:   string(pipeline.PipelineMandate),
		StageID:    m.StageID,
		Title:      m.Title,
		Attributes: map[string]string{AttrClient: m.Client},
		Version:    m.Version,
	}
}

// TargetFromRecord converts a stored record to a Target.
func TargetFromRecord(r store.Record) Target {
	return Target{ID: r.ID, Name: r.Title, MandateID: r.Attr(AttrMandateID), StageID: r.StageID, Version: r.Version}
}

// Record converts the target to its stored form.
func (t Target) Record() store.Record {
	return store.Record{
		ID:         t.ID,
		Pipeline:   string(pipeline.PipelineTarget),
		StageID:    t.StageID,
		Title:      t.Name,
		Attributes: map[string]string{AttrMandateID: t.MandateID},
		Version:    t.Version,
	}
}

// LeadAdapter binds Lead to the transition engine
type LeadAdapter struct{}

func (LeadAdapter) ID(l Lead) string      { return l.ID }
func (LeadAdapter) StageID(l Lead) string { return l.StageID }
func (LeadAdapter) Version(l Lead) int64  { return l.Version }

func (LeadAdapter) WithStageID(l Lead, stageID string) Lead {
	l.StageID = stageID
	return l
}

// MandateAdapter binds Mandate to the transition engine
type MandateAdapter struct{}

func (MandateAdapter) ID(m Mandate) string      { return m.ID }
func (MandateAdapter) StageID(m Mandate) string { return m.StageID }
func (MandateAdapter) Version(m Mandate) int64  { return m.Version }

func (MandateAdapter) WithStageID(m Mandate, stageID string) Mandate {
	m.StageID = stageID
	return m
}

// TargetAdapter binds Target to the transition engine
type TargetAdapter struct{}

func (TargetAdapter) ID(t Target) string      { return t.ID }
func (TargetAdapter) StageID(t Target) string { return t.StageID }
func (TargetAdapter) Version(t Target) int64  { return t.Version }

func (TargetAdapter) WithStageID(t Target, stageID string) Target {
	t.StageID = stageID
	return t
}

var (
	_ pipeline.Versioned[Lead]    = LeadAdapter{}
	_ pipeline.Adapter[Lead]      = LeadAdapter{}
	_ pipeline.Adapter[Mandate]   = MandateAdapter{}
	_ pipeline.Versioned[Mandate] = MandateAdapter{}
	_ pipeline.Adapter[Target]    = TargetAdapter{}
	_ pipeline.Versioned[Target]  = TargetAdapter{}
)
