package iocli

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStdio подменяет ввод строкой, вывод пишется в буфер
func newTestStdio(t *testing.T, input string) (*Stdio, *bytes.Buffer) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	go func() {
		_, _ = w.Write([]byte(input))
		_ = w.Close()
	}()

	var out bytes.Buffer
	return &Stdio{in: bufio.NewReader(r), out: &out, fd: int(r.Fd())}, &out
}

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	stdio, out := newTestStdio(t, "")

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

func TestReadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "line", input: "user input\n", want: "user input"},
		{name: "surrounding spaces", input: "  padded  \n", want: "padded"},
		{name: "no trailing newline", input: "last line", want: "last line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdio, out := newTestStdio(t, tt.input)
			result, err := stdio.ReadInput("Prompt: ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
			assert.True(t, strings.HasPrefix(out.String(), "Prompt: "))
		})
	}
}

func TestReadInput_EOF(t *testing.T) {
	stdio, _ := newTestStdio(t, "")
	_, err := stdio.ReadInput("Prompt: ")
	assert.Error(t, err)
}

// Пароль из pipe читается без обрезки пробелов
func TestReadPassword_NotTerminal(t *testing.T) {
	stdio, out := newTestStdio(t, " secret 123 \n")
	password, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, " secret 123 ", password)
	assert.NotContains(t, out.String(), "secret")
}

func TestReadInput_Sequential(t *testing.T) {
	stdio, _ := newTestStdio(t, "first\nsecond\n")

	first, err := stdio.ReadInput("")
	require.NoError(t, err)
	second, err := stdio.ReadPassword("")
	require.NoError(t, err)

	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second)
}
