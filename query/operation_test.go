package query_test

import (
	"context"
	"errors"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/suite"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/mock"
	"github.com/centraunit/ambientdb/query"
)

type OperationTestSuite struct {
	suite.Suite
	driver  *mock.Driver
	factory *database.SessionFactory
	lookup  *query.Operation[int64, map[string]any]
}

func (s *OperationTestSuite) SetupTest() {
	ambientdb.Reset()

	s.driver = &mock.Driver{
		Respond: func(string, []any) mock.Reply {
			return mock.Reply{Columns: []string{"id", "name"}, Rows: [][]any{{int64(7), []byte("ada")}}}
		},
	}
	factory, err := database.NewFromDriver(s.driver)
	s.Require().NoError(err)
	s.factory = factory
	s.Require().NoError(ambientdb.Register[database.Database](func() (database.Database, error) {
		return s.factory, nil
	}))

	s.lookup = query.New("items.lookup",
		func(d goqu.DialectWrapper, id int64) (query.Statement, error) {
			return d.From("items").Where(goqu.C("id").Eq(id)).Prepared(true), nil
		},
		query.First)
}

func (s *OperationTestSuite) TestStandaloneOpensOwnUnitOfWork() {
	row, err := s.lookup.Execute(context.Background(), 7)

	s.Require().NoError(err)
	s.Equal(int64(7), row["id"])
	s.Equal(1, s.driver.Begun())
	s.Equal(1, s.driver.Committed())

	stmt := s.driver.Transactions()[0].Statements()[0]
	s.Equal(`SELECT * FROM "items" WHERE ("id" = $1)`, stmt.Query)
	s.Equal([]any{int64(7)}, stmt.Args)
}

func (s *OperationTestSuite) TestJoinsAmbientUnitOfWork() {
	err := s.factory.Scoped(context.Background(), func(ctx context.Context, _ *database.Session) error {
		for range 3 {
			if _, err := s.lookup.Execute(ctx, 7); err != nil {
				return err
			}
		}
		s.Equal(0, s.driver.Committed())
		return nil
	})

	s.Require().NoError(err)
	s.Equal(1, s.driver.Begun())
	s.Equal(1, s.driver.Committed())
	s.Len(s.driver.Transactions()[0].Statements(), 3)
}

func (s *OperationTestSuite) TestJoinsOuterUnitOfWorkAcrossOtherDatabase() {
	otherDriver := &mock.Driver{}
	other, err := database.NewFromDriver(otherDriver)
	s.Require().NoError(err)

	err = s.factory.Scoped(context.Background(), func(ctx context.Context, _ *database.Session) error {
		return other.Scoped(ctx, func(ctx context.Context, _ *database.Session) error {
			_, err := s.lookup.Execute(ctx, 7)
			return err
		})
	})

	s.Require().NoError(err)
	s.Equal(1, s.driver.Begun())
	s.Len(s.driver.Transactions()[0].Statements(), 1)
	s.Empty(otherDriver.Transactions()[0].Statements())
}

func (s *OperationTestSuite) TestShaperAppliesOnBothPaths() {
	op := query.New("items.names",
		func(d goqu.DialectWrapper, _ struct{}) (query.Statement, error) {
			return d.From("items").Select("name"), nil
		},
		query.Then(query.All, func(rows []map[string]any) ([]string, error) {
			names := make([]string, 0, len(rows))
			for _, row := range rows {
				names = append(names, string(row["name"].([]byte)))
			}
			return names, nil
		}))

	standalone, err := op.Execute(context.Background(), struct{}{})
	s.Require().NoError(err)

	var ambient []string
	s.Require().NoError(s.factory.Scoped(context.Background(), func(ctx context.Context, _ *database.Session) error {
		ambient, err = op.Execute(ctx, struct{}{})
		return err
	}))

	s.Equal([]string{"ada"}, standalone)
	s.Equal(standalone, ambient)
}

func (s *OperationTestSuite) TestExecutionErrorRollsBackStandalone() {
	dbErr := errors.New("relation does not exist")
	s.driver.Respond = func(string, []any) mock.Reply { return mock.Reply{Err: dbErr} }

	_, err := s.lookup.Execute(context.Background(), 1)

	s.ErrorIs(err, dbErr)
	s.Equal(1, s.driver.RolledBack())
}

func (s *OperationTestSuite) TestBuildError() {
	buildErr := errors.New("bad args")
	op := query.New("items.bad",
		func(goqu.DialectWrapper, string) (query.Statement, error) { return nil, buildErr },
		query.First)

	_, err := op.Execute(context.Background(), "x")

	var be *query.BuildError
	s.Require().ErrorAs(err, &be)
	s.Equal("items.bad", be.Op)
	s.ErrorIs(err, buildErr)
	s.Equal(0, s.driver.Begun(), "nothing is begun for an unbuildable statement")
}

func (s *OperationTestSuite) TestUnregisteredDatabase() {
	ambientdb.Reset()

	_, err := s.lookup.Execute(context.Background(), 1)

	var notRegistered *ambientdb.NotRegisteredError
	s.ErrorAs(err, &notRegistered)
}

func (s *OperationTestSuite) TestPinnedDatabase() {
	ambientdb.Reset()
	op := query.New("items.count",
		func(d goqu.DialectWrapper, _ query.Filter) (query.Statement, error) {
			return d.From("items").Select(goqu.COUNT(goqu.Star())), nil
		},
		query.Int, query.WithDatabase(s.factory))

	n, err := op.Execute(context.Background(), nil)

	s.Require().NoError(err)
	s.Equal(int64(7), n)
	s.Equal("items.count", op.Name())
}

func (s *OperationTestSuite) TestCustomRegistry() {
	ambientdb.Reset()
	r := ambientdb.New()
	s.Require().NoError(ambientdb.RegisterIn[database.Database](r, func() (database.Database, error) {
		return s.factory, nil
	}))
	op := query.New("items.exists",
		func(d goqu.DialectWrapper, id int64) (query.Statement, error) {
			return d.From("items").Select(goqu.L("1")).Where(goqu.C("id").Eq(id)).Limit(1), nil
		},
		query.NonEmpty, query.WithRegistry(r))

	found, err := op.Execute(context.Background(), 7)

	s.Require().NoError(err)
	s.True(found)
}

func (s *OperationTestSuite) TestExecOperationReportsAffected() {
	s.driver.Respond = func(string, []any) mock.Reply { return mock.Reply{Affected: 3} }
	op := query.NewExec("items.touch",
		func(d goqu.DialectWrapper, _ struct{}) (query.Statement, error) {
			return d.Update("items").Set(goqu.Record{"name": "x"}), nil
		},
		query.Affected)

	n, err := op.Execute(context.Background(), struct{}{})

	s.Require().NoError(err)
	s.Equal(int64(3), n)
}

func TestOperationSuite(t *testing.T) {
	suite.Run(t, new(OperationTestSuite))
}
