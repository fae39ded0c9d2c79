package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type SynthSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewSynthSQLiteStore(rdb, rwdb *sql.DB) *SynthSQLiteStore {
	return &SynthSQLiteStore{rdb, rwdb}
}

func (store *SynthSQLiteStore) CreateSynth(
	ctx context.Context,
	environment, stackName, account, region, templateHash, body string,
) (*Synth, error) {
	s := &Synth{
		Environment:  environment,
		StackName:    stackName,
		Account:      account,
		Region:       region,
		TemplateHash: templateHash,
		Template:     body,
	}
	query := `insert into synths (
		environment,
		stack_name,
		account,
		region,
		template_hash,
		template
	)
	values ($1, $2, $3, $4, $5, $6)
	returning synth_id, created_on`
	if err := sqlscan.Get(
		ctx, store.rwdb, s, query,
		s.Environment,
		s.StackName,
		s.Account,
		s.Region,
		s.TemplateHash,
		s.Template,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SynthSQLiteStore) ReadSynthByID(ctx context.Context, id int64) (*Synth, error) {
	s := &Synth{SynthID: id}
	query := "select * from synths where synth_id = $1"
	if err := sqlscan.Get(ctx, store.rdb, s, query, s.SynthID); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SynthSQLiteStore) ReadLatestSynth(
	ctx context.Context,
	environment, stackName string,
) (*Synth, error) {
	s := new(Synth)
	query := `select * from synths
	where environment = $1 and stack_name = $2
	order by synth_id desc
	limit 1`
	if err := sqlscan.Get(ctx, store.rdb, s, query, environment, stackName); err != nil {
		return nil, err
	}
	return s, nil
}

func (store *SynthSQLiteStore) ListSynths(
	ctx context.Context,
	environment string,
) ([]*Synth, error) {
	query := `select * from synths
	where environment = $1
	order by synth_id desc`
	synths := make([]*Synth, 0)
	err := sqlscan.Select(ctx, store.rdb, &synths, query, environment)
	return synths, err
}

func (store *SynthSQLiteStore) DeleteSynth(ctx context.Context, id int64) error {
	query := "delete from synths where synth_id = $1"
	_, err := store.rwdb.ExecContext(ctx, query, id)
	return err
}
