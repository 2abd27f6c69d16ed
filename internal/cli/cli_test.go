package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/keepvault/internal/iocli"
	"github.com/iudanet/keepvault/internal/kdbx"
	"github.com/iudanet/keepvault/internal/keys"
	"github.com/iudanet/keepvault/internal/merge"
	"github.com/iudanet/keepvault/internal/models"
	"github.com/iudanet/keepvault/internal/storage/local"
)

const testPassword = "correct horse battery staple"

type testEnv struct {
	cli     *Cli
	io      *iocli.IOMock
	store   *local.Store
	dir     string
	out     bytes.Buffer
	env     map[string]string
	prompts []string
	inputs  []string
}

// newTestEnv создает Cli поверх временного каталога. Пароль берется из
// переменной окружения, ответы на запросы пароля - из prompts, на
// остальные запросы - из inputs.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	color.NoColor = true
	te := &testEnv{
		dir: t.TempDir(),
		env: map[string]string{envMasterPassword: testPassword},
	}
	te.store = local.New(te.dir)
	te.io = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			fmt.Fprintln(&te.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(&te.out, format, a...)
		},
		ReadInputFunc: func(prompt string) (string, error) {
			if len(te.inputs) == 0 {
				return "", io.EOF
			}
			in := te.inputs[0]
			te.inputs = te.inputs[1:]
			return in, nil
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			if len(te.prompts) == 0 {
				return "", io.EOF
			}
			p := te.prompts[0]
			te.prompts = te.prompts[1:]
			return p, nil
		},
		WriteFunc: func(p []byte) (int, error) {
			return te.out.Write(p)
		},
	}
	te.cli = New(te.io, te.store, VersionInfo{Version: "1.2.3", BuildDate: "2024-03-01", GitCommit: "abc1234"})
	te.cli.getenv = func(k string) string { return te.env[k] }
	te.cli.logOut = io.Discard
	return te
}

// run выполняет команду и возвращает ее вывод
func (te *testEnv) run(args ...string) (string, error) {
	te.out.Reset()
	root := te.cli.RootCommand()
	root.SetArgs(append([]string{"--state", filepath.Join(te.dir, "state.db")}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return te.out.String(), err
}

func (te *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := te.run(args...)
	require.NoError(t, err, out)
	return out
}

func (te *testEnv) open(t *testing.T, path string) *kdbx.Database {
	t.Helper()
	key, err := te.cli.buildKey(context.Background(), te.env[envMasterPassword], "")
	require.NoError(t, err)
	db, err := kdbx.Open(context.Background(), te.store, path, key, kdbx.OpenOptions{})
	require.NoError(t, err)
	return db
}

func TestMasterPassword(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		file    string
		flag    string
		prompts []string
		confirm bool
		want    string
		wantErr string
	}{
		{name: "env wins", env: "from-env", file: "from-file\n", flag: "from-flag", want: "from-env"},
		{name: "file before flag", file: "from-file\n", flag: "from-flag", want: "from-file"},
		{name: "flag", flag: "from-flag", want: "from-flag"},
		{name: "prompt", prompts: []string{"typed"}, want: "typed"},
		{name: "prompt confirmed", prompts: []string{"typed", "typed"}, confirm: true, want: "typed"},
		{name: "prompt mismatch", prompts: []string{"typed", "other"}, confirm: true, wantErr: "passwords do not match"},
		{name: "empty file", file: "  \n", wantErr: "password file is empty"},
		{name: "prompt fails", wantErr: "failed to read password from stdin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t)
			te.env = map[string]string{envMasterPassword: tt.env}
			te.prompts = tt.prompts
			te.cli.opts.Password = tt.flag
			if tt.file != "" {
				w, err := te.store.OpenWrite(context.Background(), "pw.txt")
				require.NoError(t, err)
				_, err = io.WriteString(w, tt.file)
				require.NoError(t, err)
				require.NoError(t, w.Close())
				te.cli.opts.PasswordFile = "pw.txt"
			}

			got, err := te.cli.masterPassword(context.Background(), tt.confirm)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildKey(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv(t)
	require.NoError(t, keys.GenerateKeyFile(ctx, te.store, "vault.key"))

	_, err := te.cli.buildKey(ctx, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")

	key, err := te.cli.buildKey(ctx, "", "vault.key")
	require.NoError(t, err)
	assert.Equal(t, 1, key.Len())

	key, err = te.cli.buildKey(ctx, "pw", "vault.key")
	require.NoError(t, err)
	assert.Equal(t, 2, key.Len())

	_, err = te.cli.buildKey(ctx, "pw", "missing.key")
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	te := newTestEnv(t)

	out := te.mustRun(t, "init", "--rounds", "100", "--name", "Personal")
	assert.Contains(t, out, "Database created")

	db := te.open(t, "keepvault.kdbx")
	assert.Equal(t, "Personal", db.Meta.DatabaseName)
	assert.Equal(t, "Personal", db.Root.Name)
	assert.Equal(t, uint64(100), db.KDF.Rounds)

	_, err := te.run("init", "--rounds", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = te.run("--db", "other.kdbx", "init", "--rounds", "0")
	assert.Error(t, err)
}

func TestInit_PromptsTwice(t *testing.T) {
	te := newTestEnv(t)
	te.env = nil
	te.prompts = []string{"typed", "typed"}

	te.mustRun(t, "init", "--rounds", "100")
	assert.Len(t, te.io.ReadPasswordCalls(), 2)

	te.env = map[string]string{envMasterPassword: "typed"}
	te.open(t, "keepvault.kdbx")
}

func TestCommands_MissingDatabase(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.run("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keepvault init")
}

func TestAddListShow(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	out := te.mustRun(t, "add", "--title", "GitHub", "--username", "octocat", "--secret", "s3cret",
		"--url", "https://github.com", "--group", "Work/Dev", "--tag", "code,vcs", "--field", "PIN=1234")
	assert.Contains(t, out, "Entry added successfully")
	te.mustRun(t, "add", "--title", "Bank", "--secret", "money")

	out = te.mustRun(t, "list")
	assert.Contains(t, out, "Found 2 entries")
	assert.Contains(t, out, "Work/Dev/GitHub")
	assert.Contains(t, out, "(octocat)")

	tests := []struct {
		name string
		args []string
		want []string
		not  []string
	}{
		{name: "search", args: []string{"list", "--search", "OCTO"}, want: []string{"GitHub"}, not: []string{"Bank"}},
		{name: "tag", args: []string{"list", "--tag", "vcs"}, want: []string{"GitHub"}, not: []string{"Bank"}},
		{name: "group", args: []string{"list", "--group", "Work"}, want: []string{"GitHub"}, not: []string{"Bank"}},
		{name: "protected not searched", args: []string{"list", "--search", "money"}, want: []string{"No entries found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := te.mustRun(t, tt.args...)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, out, n)
			}
		})
	}

	out = te.mustRun(t, "show", "github")
	assert.Contains(t, out, "octocat")
	assert.Contains(t, out, hiddenValue)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "PIN: 1234")
	assert.Contains(t, out, "code, vcs")
	assert.Contains(t, out, "Work/Dev")

	out = te.mustRun(t, "show", "GitHub", "--reveal")
	assert.Contains(t, out, "s3cret")

	_, err := te.run("list", "--group", "Missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = te.run("show", "Nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestAdd_Validation(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing title", args: []string{"add", "--secret", "x"}},
		{name: "field without value", args: []string{"add", "--title", "A", "--secret", "x", "--field", "PIN"}},
		{name: "reserved field", args: []string{"add", "--title", "A", "--secret", "x", "--field", "Password=1"}},
		{name: "empty group segment", args: []string{"add", "--title", "A", "--secret", "x", "--group", "Work//Dev"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := te.run(tt.args...)
			assert.Error(t, err)
		})
	}

	db := te.open(t, "keepvault.kdbx")
	assert.Empty(t, db.Root.AllEntries())
}

func TestAdd_PromptsForSecret(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.prompts = []string{"prompted"}

	te.mustRun(t, "add", "--title", "Mail")

	db := te.open(t, "keepvault.kdbx")
	entries := db.Root.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "prompted", entries[0].Strings.Value(models.FieldPassword))
	assert.True(t, entries[0].Strings.Get(models.FieldPassword).IsProtected())
}

func TestShow_Ambiguous(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "Mail", "--secret", "a")
	te.mustRun(t, "add", "--title", "Mail", "--secret", "b", "--group", "Other")

	_, err := te.run("show", "Mail")
	assert.ErrorIs(t, err, ErrAmbiguousEntry)

	db := te.open(t, "keepvault.kdbx")
	id := db.Root.AllEntries()[0].UUID
	out := te.mustRun(t, "show", id.String())
	assert.Contains(t, out, id.String())
}

func TestRemove(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "Old", "--secret", "x")

	db := te.open(t, "keepvault.kdbx")
	id := db.Root.AllEntries()[0].UUID

	te.inputs = []string{"n"}
	out := te.mustRun(t, "rm", "Old")
	assert.Contains(t, out, "Cancelled")
	assert.Len(t, te.io.ReadInputCalls(), 1)

	te.inputs = []string{"Y"}
	out = te.mustRun(t, "rm", "Old")
	assert.Contains(t, out, "moved to the recycle bin")
	out = te.mustRun(t, "list")
	assert.Contains(t, out, "No entries found")
	out = te.mustRun(t, "list", "--all")
	assert.Contains(t, out, "Old")

	// из корзины запись удаляется окончательно, остается tombstone
	out = te.mustRun(t, "delete", id.String(), "--yes")
	assert.Contains(t, out, "deleted permanently")

	db = te.open(t, "keepvault.kdbx")
	assert.Nil(t, db.FindEntry(id))
	require.Len(t, db.DeletedObjects, 1)
	assert.Equal(t, id, db.DeletedObjects[0].UUID)
}

func TestEditHistory(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "Server", "--username", "root", "--secret", "one")

	out := te.mustRun(t, "history", "Server")
	assert.Contains(t, out, "has no history")

	te.mustRun(t, "edit", "Server", "--username", "admin", "--secret", "two", "--field", "Port=22")

	out = te.mustRun(t, "show", "Server", "--reveal")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "Port: 22")

	out = te.mustRun(t, "history", "Server")
	assert.Contains(t, out, "  0  ")

	te.mustRun(t, "history", "Server", "--restore", "0")
	db := te.open(t, "keepvault.kdbx")
	e := db.Root.AllEntries()[0]
	assert.Equal(t, "root", e.Strings.Value(models.FieldUserName))
	assert.Equal(t, "one", e.Strings.Value(models.FieldPassword))
	// восстановление сохраняет текущее состояние в истории
	assert.Len(t, e.History, 2)

	te.mustRun(t, "history", "Server", "--delete", "0")
	db = te.open(t, "keepvault.kdbx")
	assert.Len(t, db.Root.AllEntries()[0].History, 1)

	_, err := te.run("history", "Server", "--delete", "5")
	assert.ErrorIs(t, err, models.ErrHistoryIndex)
	_, err = te.run("history", "Server", "--delete", "0", "--restore", "0")
	assert.Error(t, err)
	_, err = te.run("edit", "Server")
	assert.Error(t, err)
}

func TestLocking(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	lock, err := kdbx.AcquireLock(ctx, te.store, "keepvault.kdbx")
	require.NoError(t, err)

	_, err = te.run("add", "--title", "A", "--secret", "x")
	assert.ErrorIs(t, err, kdbx.ErrLockHeld)

	// чтение блокировку не берет, но запись при чужой блокировке запрещена
	te.mustRun(t, "list")
	_, err = te.run("--no-lock", "add", "--title", "A", "--secret", "x")
	assert.ErrorIs(t, err, kdbx.ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	te.mustRun(t, "--no-lock", "add", "--title", "A", "--secret", "x")
	te.mustRun(t, "add", "--title", "B", "--secret", "x")

	exists, err := te.store.Exists(ctx, kdbx.LockPath("keepvault.kdbx"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWrongPassword(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	te.env[envMasterPassword] = "wrong"
	_, err := te.run("list")
	assert.ErrorIs(t, err, kdbx.ErrWrongKey)
}

func TestKeyFile(t *testing.T) {
	te := newTestEnv(t)

	out := te.mustRun(t, "keyfile", "vault.key")
	assert.Contains(t, out, "Key file created")
	_, err := te.run("keyfile", "vault.key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	te.mustRun(t, "keyfile", "vault.key", "--force")

	te.mustRun(t, "--key-file", "vault.key", "init", "--rounds", "100")
	te.mustRun(t, "--key-file", "vault.key", "add", "--title", "A", "--secret", "x")

	_, err = te.run("list")
	assert.ErrorIs(t, err, kdbx.ErrWrongKey)

	// только файл ключа, без пароля
	te.env = nil
	te.prompts = []string{"", ""}
	te.mustRun(t, "--db", "keyonly.kdbx", "--key-file", "vault.key", "init", "--rounds", "100")
}

func TestPasswd(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "A", "--secret", "x")

	te.prompts = []string{"new password", "new password"}
	out := te.mustRun(t, "passwd")
	assert.Contains(t, out, "Master key changed")

	_, err := te.run("list")
	assert.ErrorIs(t, err, kdbx.ErrWrongKey)

	te.env[envMasterPassword] = "new password"
	out = te.mustRun(t, "list")
	assert.Contains(t, out, "Found 1 entries")

	te.prompts = []string{"a", "b"}
	_, err = te.run("passwd")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "Local", "--secret", "x")
	te.mustRun(t, "--db", "other.kdbx", "init", "--rounds", "100")
	te.mustRun(t, "--db", "other.kdbx", "add", "--title", "Remote", "--secret", "y", "--group", "Shared")

	out := te.mustRun(t, "merge", "other.kdbx")
	assert.Contains(t, out, "Merged")
	assert.Contains(t, out, "1 groups, 1 entries")

	out = te.mustRun(t, "list")
	assert.Contains(t, out, "Local")
	assert.Contains(t, out, "Shared/Remote")

	out = te.mustRun(t, "merge", "other.kdbx", "--mode", "sync")
	assert.Contains(t, out, "Nothing to merge")

	_, err := te.run("merge", "other.kdbx", "--mode", "bogus")
	assert.Error(t, err)
	_, err = te.run("merge", "missing.kdbx")
	assert.Error(t, err)
}

func TestMerge_NewUUIDs(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "A", "--secret", "x")

	te.mustRun(t, "merge", "keepvault.kdbx", "--no-lock", "--mode", "new-uuids")

	db := te.open(t, "keepvault.kdbx")
	entries := db.Root.AllEntries()
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].UUID, entries[1].UUID)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "A", "--secret", "alpha", "--group", "G")
	te.mustRun(t, "add", "--title", "B", "--secret", "beta")

	out := te.mustRun(t, "export", "all.xml")
	assert.Contains(t, out, "NOT encrypted")

	r, err := te.store.OpenRead(ctx, "all.xml")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	// в открытом экспорте пароли лежат как есть
	assert.Contains(t, string(data), "alpha")

	te.mustRun(t, "export", "one.xml", "--entry", "B")

	te.mustRun(t, "--db", "fresh.kdbx", "init", "--rounds", "100")
	out = te.mustRun(t, "--db", "fresh.kdbx", "import", "one.xml")
	assert.Contains(t, out, "0 groups, 1 entries")
	out = te.mustRun(t, "--db", "fresh.kdbx", "import", "all.xml")
	assert.Contains(t, out, "1 groups, 1 entries")

	out = te.mustRun(t, "--db", "fresh.kdbx", "list")
	assert.Contains(t, out, "Found 2 entries")

	_, err = te.run("export", "x.xml", "--entry", "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	_, err = te.run("import", "missing.xml")
	assert.Error(t, err)
}

func TestImport_Malformed(t *testing.T) {
	ctx := context.Background()
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	w, err := te.store.OpenWrite(ctx, "bad.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "<KeePassFile><Root>")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = te.run("import", "bad.xml")
	assert.ErrorIs(t, err, kdbx.ErrCorruptFile)
}

func TestSync(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "A", "--secret", "x")

	out := te.mustRun(t, "sync", "remote.kdbx")
	assert.Contains(t, out, "Last sync: never")
	assert.Contains(t, out, "Remote copy created")

	// изменения на удаленной стороне приходят в локальную базу
	te.mustRun(t, "--db", "remote.kdbx", "add", "--title", "B", "--secret", "y")
	out = te.mustRun(t, "sync", "remote.kdbx")
	assert.NotContains(t, out, "Last sync: never")
	assert.Contains(t, out, "Added:     1")

	out = te.mustRun(t, "list")
	assert.Contains(t, out, "Found 2 entries")
}

func TestSync_RemoteInState(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")
	te.mustRun(t, "add", "--title", "A", "--secret", "x")

	out := te.mustRun(t, "sync", "--list")
	assert.Contains(t, out, "No remote copies")

	te.mustRun(t, "sync", "vault.kdbx", "--remote-in-state")
	out = te.mustRun(t, "sync", "--list")
	assert.Contains(t, out, "vault.kdbx")

	out = te.mustRun(t, "sync", "vault.kdbx", "--remote-in-state")
	assert.Contains(t, out, "Added:     0")

	_, err := te.run("sync")
	assert.Error(t, err)
}

func TestBenchmark(t *testing.T) {
	te := newTestEnv(t)
	te.mustRun(t, "init", "--rounds", "100")

	out := te.mustRun(t, "benchmark", "--time", "20ms")
	assert.Contains(t, out, "rounds")

	te.mustRun(t, "benchmark", "--time", "20ms", "--apply")
	db := te.open(t, "keepvault.kdbx")
	assert.Greater(t, db.KDF.Rounds, uint64(100))

	_, err := te.run("benchmark", "--time", "0s")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	te := newTestEnv(t)
	out := te.mustRun(t, "version")
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "abc1234")
}

func TestModeValue(t *testing.T) {
	var mode merge.Mode
	v := modeValue{mode: &mode}

	require.NoError(t, v.Set("keep"))
	assert.Equal(t, merge.KeepExisting, mode)
	assert.Equal(t, "keep", v.String())
	assert.Error(t, v.Set("nope"))
	assert.Equal(t, "", modeValue{}.String())
}

func TestFormatError(t *testing.T) {
	msg := FormatError(errors.New("boom"))
	assert.True(t, strings.HasSuffix(msg, "Error: boom"))
}
