package store

import (
	"context"
	"time"
)

// Synth is one synthesized template as it was handed to the provisioning
// engine or written to the output directory.
type Synth struct {
	SynthID      int64     `json:"synth_id"`
	Environment  string    `json:"environment"`
	StackName    string    `json:"stack_name"`
	Account      string    `json:"account"`
	Region       string    `json:"region"`
	TemplateHash string    `json:"template_hash"`
	Template     string    `json:"-"`
	CreatedOn    time.Time `json:"created_on"`
}

type SynthStore interface {
	CreateSynth(context.Context, string, string, string, string, string, string) (*Synth, error)
	ReadSynthByID(context.Context, int64) (*Synth, error)
	ReadLatestSynth(context.Context, string, string) (*Synth, error)
	ListSynths(context.Context, string) ([]*Synth, error)
	DeleteSynth(context.Context, int64) error
}
