package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Nephrolytics-ai/medscribe/internal/types"
)

type StoreTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *Store
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := Open(s.ctx, filepath.Join(s.T().TempDir(), "templates.db"))
	s.Require().NoError(err)
	s.store = store
}

func sampleTemplate(name string) types.Template {
	return types.Template{
		Name: name,
		Fields: []types.FieldDefinition{
			{Key: "chief_complaint", Label: "Chief Complaint", Section: "Subjective", ValueType: types.ValueText, Ordinal: 0},
			{Key: "assessment", Label: "Assessment", Section: "Assessment & Plan", ValueType: types.ValueText, Ordinal: 1},
			{Key: "plan", Label: "Plan", Section: "Assessment & Plan", ValueType: types.ValueText, Ordinal: 2},
		},
	}
}

func (s *StoreTestSuite) TestSeedsDefaultTemplates() {
	general, err := s.store.Load(s.ctx, "general_soap_note")
	s.Require().NoError(err)
	s.NotEmpty(general.Fields)

	cardiology, err := s.store.Load(s.ctx, "cardiology_consultation")
	s.Require().NoError(err)
	s.NotEmpty(cardiology.Fields)
}

func (s *StoreTestSuite) TestSaveAndLoadRoundTrip() {
	template := sampleTemplate("custom_note")
	s.Require().NoError(s.store.Save(s.ctx, template))

	loaded, err := s.store.Load(s.ctx, "custom_note")
	s.Require().NoError(err)
	s.Equal(template, loaded)
}

func (s *StoreTestSuite) TestLoadPreservesFieldOrder() {
	template := types.Template{
		Name: "ordered_note",
		Fields: []types.FieldDefinition{
			{Key: "zulu", Label: "Zulu", Section: "A", ValueType: types.ValueText, Ordinal: 0},
			{Key: "alpha", Label: "Alpha", Section: "A", ValueType: types.ValueText, Ordinal: 1},
			{Key: "mike", Label: "Mike", Section: "B", ValueType: types.ValueText, Ordinal: 2},
		},
	}
	s.Require().NoError(s.store.Save(s.ctx, template))

	loaded, err := s.store.Load(s.ctx, "ordered_note")
	s.Require().NoError(err)
	s.Equal([]string{"zulu", "alpha", "mike"}, loaded.Keys())
}

func (s *StoreTestSuite) TestSaveUpsertsByName() {
	first := sampleTemplate("custom_note")
	s.Require().NoError(s.store.Save(s.ctx, first))

	second := types.Template{
		Name: "custom_note",
		Fields: []types.FieldDefinition{
			{Key: "summary", Label: "Summary", Section: "General", ValueType: types.ValueText, Ordinal: 0},
		},
	}
	s.Require().NoError(s.store.Save(s.ctx, second))

	loaded, err := s.store.Load(s.ctx, "custom_note")
	s.Require().NoError(err)
	s.Require().Len(loaded.Fields, 1)
	s.Equal("summary", loaded.Fields[0].Key)

	infos, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	names := make(map[string]int)
	for _, info := range infos {
		names[info.Name]++
	}
	s.Equal(1, names["custom_note"], "upsert must not duplicate the row")
}

func (s *StoreTestSuite) TestLoadMissingTemplate() {
	_, err := s.store.Load(s.ctx, "no_such_template")
	s.Require().Error(err)
	s.ErrorIs(err, ErrTemplateNotFound)
}

func (s *StoreTestSuite) TestSaveRejectsEmptyTemplates() {
	s.Error(s.store.Save(s.ctx, types.Template{Name: "", Fields: sampleTemplate("x").Fields}))
	s.Error(s.store.Save(s.ctx, types.Template{Name: "empty_note"}))
}

func (s *StoreTestSuite) TestListReportsFieldCounts() {
	s.Require().NoError(s.store.Save(s.ctx, sampleTemplate("custom_note")))

	infos, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.GreaterOrEqual(len(infos), 3)

	byName := make(map[string]types.TemplateInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}
	s.Equal(3, byName["custom_note"].FieldCount)
	s.NotEmpty(byName["custom_note"].CreatedAt)
}

func (s *StoreTestSuite) TestDelete() {
	s.Require().NoError(s.store.Save(s.ctx, sampleTemplate("custom_note")))
	s.Require().NoError(s.store.Delete(s.ctx, "custom_note"))

	_, err := s.store.Load(s.ctx, "custom_note")
	s.ErrorIs(err, ErrTemplateNotFound)

	err = s.store.Delete(s.ctx, "custom_note")
	s.ErrorIs(err, ErrTemplateNotFound)
}
