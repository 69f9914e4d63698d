package postgres_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"notice-dispatch/internal/infra/adapter/persistence/postgres"
	"notice-dispatch/internal/repository"
)

var userCols = []string{"id", "username", "email", "locale", "slack_user_id", "is_active", "is_superuser"}

func TestUserRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`FROM users`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(userCols))

	got, err := postgres.NewUserRepo(db).Get(context.Background(), 2)
	if err != nil || got != nil {
		t.Fatalf("want (nil, nil), got (%v, %v)", got, err)
	}
}

func TestUserRepo_ListByIDs(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id IN ($1, $2)`)).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "alice", "alice@example.com", "en", "", true, false).
			AddRow(int64(3), "carol", "carol@example.com", "ja", "U3", true, false))

	got, err := postgres.NewUserRepo(db).ListByIDs(context.Background(), []int64{1, 3})
	if err != nil || len(got) != 2 || got[1].SlackUserID != "U3" {
		t.Fatalf("ListByIDs=%v err=%v", got, err)
	}
}

func TestUserRepo_ListByIDs_Empty(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	got, err := postgres.NewUserRepo(db).ListByIDs(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("ListByIDs=%v err=%v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserRepo_ListIDs(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT id FROM users`).
		WithArgs(false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	got, err := postgres.NewUserRepo(db).ListIDs(context.Background(), repository.UserFilter{})
	if err != nil || len(got) != 2 {
		t.Fatalf("ListIDs=%v err=%v", got, err)
	}
}
