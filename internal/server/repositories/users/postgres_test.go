package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var userCols = []string{"id", "name", "email", "password_hash", "tokens", "has_avatar", "avatar_key", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*password_hash,\s*tokens\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*ARRAY\[\$5\]::text\[\]\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u1", "Alice", "alice@example.com", []byte("hash"), "tok").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: []byte("hash")}
	got, err := repo.Create(context.Background(), u, "tok")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(got.Tokens) != 1 || got.Tokens[0] != "tok" {
		t.Fatalf("unexpected tokens: %v", got.Tokens)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at not set: %v", got.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@b.c"}, "tok")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "u1"}, "tok")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Alice", "alice@example.com", []byte("hash"), "{t1,t2}", true, "", now, now))

	got, err := repo.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != "u1" || got.Email != "alice@example.com" || !got.HasAvatar {
		t.Fatalf("unexpected user: %+v", got)
	}
	if len(got.Tokens) != 2 || got.Tokens[0] != "t1" || got.Tokens[1] != "t2" {
		t.Fatalf("unexpected tokens: %v", got.Tokens)
	}
}

func TestGetByID_EmptyTokenList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Alice", "alice@example.com", []byte("hash"), "{}", false, "", now, now))

	got, err := repo.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if len(got.Tokens) != 0 {
		t.Fatalf("want no tokens, got %v", got.Tokens)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByEmail_CaseInsensitive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Alice", "alice@example.com", []byte("hash"), "{}", false, "", now, now))

	got, err := repo.GetByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE lower\(email\)`).
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByEmail(context.Background(), "a@b.c")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*COALESCE\(\$2,\s*name\),\s*email\s*=\s*COALESCE\(\$3,\s*email\),\s*password_hash\s*=\s*COALESCE\(\$4,\s*password_hash\),\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u1", "Bob", nil, []byte(nil)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Bob", "alice@example.com", []byte("hash"), "{t1}", false, "", now, now))

	name := "Bob"
	got, err := repo.Update(context.Background(), "u1", models.UserPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Name != "Bob" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE users SET`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	email := "taken@example.com"
	_, err := repo.Update(context.Background(), "u1", models.UserPatch{Email: &email})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE users SET`).
		WillReturnError(sql.ErrNoRows)

	name := "x"
	_, err := repo.Update(context.Background(), "u1", models.UserPatch{Name: &name})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDelete_ReturnsRemovedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Alice", "alice@example.com", []byte("hash"), "{t1}", true, "avatars/u1.png", now, now))

	got, err := repo.Delete(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if got.AvatarKey != "avatars/u1.png" {
		t.Fatalf("unexpected avatar key: %q", got.AvatarKey)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`DELETE FROM users`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Delete(context.Background(), "u1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestTokenMutations_SingleStatement(t *testing.T) {
	cases := []struct {
		name  string
		query string
		args  []driver.Value
		call  func(r *PostgresRepository) error
	}{
		{
			name:  "append",
			query: `(?s)^UPDATE\s+users\s+SET\s+tokens\s*=\s*array_append\(tokens,\s*\$2\)`,
			args:  []driver.Value{"u1", "tok"},
			call:  func(r *PostgresRepository) error { return r.AppendToken(context.Background(), "u1", "tok") },
		},
		{
			name:  "remove",
			query: `(?s)^UPDATE\s+users\s+SET\s+tokens\s*=\s*array_remove\(tokens,\s*\$2\)`,
			args:  []driver.Value{"u1", "tok"},
			call:  func(r *PostgresRepository) error { return r.RemoveToken(context.Background(), "u1", "tok") },
		},
		{
			name:  "clear",
			query: `(?s)^UPDATE\s+users\s+SET\s+tokens\s*=\s*'\{\}'`,
			args:  []driver.Value{"u1"},
			call:  func(r *PostgresRepository) error { return r.ClearTokens(context.Background(), "u1") },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(tc.query).
				WithArgs(tc.args...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := tc.call(repo); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestAppendToken_UnknownUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`array_append`).
		WithArgs("ghost", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AppendToken(context.Background(), "ghost", "tok")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestRemoveToken_ExecError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`array_remove`).
		WillReturnError(errors.New("db is down"))

	err := repo.RemoveToken(context.Background(), "u1", "tok")
	if err == nil || !regexp.MustCompile(`db error: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestClearTokens_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`tokens = '\{\}'`).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

	err := repo.ClearTokens(context.Background(), "u1")
	if err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}

func TestSetAvatar_Inline(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+avatar\s*=\s*\$2,\s*avatar_key\s*=\s*NULLIF\(\$3,\s*''\)`).
		WithArgs("u1", []byte("png"), "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetAvatar(context.Background(), "u1", []byte("png"), ""); err != nil {
		t.Fatalf("SetAvatar error: %v", err)
	}
}

func TestClearAvatar_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`SET avatar = NULL, avatar_key = NULL`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ClearAvatar(context.Background(), "u1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestGetAvatar(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT avatar, COALESCE\(avatar_key, ''\) FROM users`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"avatar", "avatar_key"}).AddRow([]byte("png"), ""))

		data, key, err := repo.GetAvatar(context.Background(), "u1")
		if err != nil {
			t.Fatalf("GetAvatar error: %v", err)
		}
		if string(data) != "png" || key != "" {
			t.Fatalf("unexpected avatar: %q %q", data, key)
		}
	})

	t.Run("object key", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT avatar`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"avatar", "avatar_key"}).AddRow(nil, "avatars/u1.png"))

		data, key, err := repo.GetAvatar(context.Background(), "u1")
		if err != nil {
			t.Fatalf("GetAvatar error: %v", err)
		}
		if data != nil || key != "avatars/u1.png" {
			t.Fatalf("unexpected avatar: %q %q", data, key)
		}
	})

	t.Run("no avatar", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT avatar`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"avatar", "avatar_key"}).AddRow(nil, ""))

		if _, _, err := repo.GetAvatar(context.Background(), "u1"); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want ErrorNotFound, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT avatar`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		if _, _, err := repo.GetAvatar(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want ErrorNotFound, got %v", err)
		}
	})
}
