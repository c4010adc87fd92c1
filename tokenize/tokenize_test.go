package tokenize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTokenizerLowercasesAndSplits(t *testing.T) {
	require.Equal(t, []string{"hello", "world"}, DefaultTokenizer("Hello, World!"))
}

func TestDefaultTokenizerIsolatesHanIdeographs(t *testing.T) {
	got := DefaultTokenizer("可是")
	require.Equal(t, []string{"可", "是"}, got)
}

func TestDefaultTokenizerMixedScript(t *testing.T) {
	got := DefaultTokenizer("abc可是123")
	require.Equal(t, []string{"abc", "可", "是", "123"}, got)
}

func TestDefaultTokenizerEmptyInput(t *testing.T) {
	require.Equal(t, []string{}, DefaultTokenizer("   ---   "))
}

func TestPartitionSplitsByCodePointLength(t *testing.T) {
	words, chars := Partition([]string{"ab", "c", "", "def", "x"})
	require.Equal(t, []string{"ab", "def"}, words)
	require.Equal(t, []string{"c", "x"}, chars)
}

func TestPartitionCountsCodePointsNotBytes(t *testing.T) {
	// "可" is one code point but three UTF-8 bytes; it must land in chars.
	words, chars := Partition([]string{"可"})
	require.Empty(t, words)
	require.Equal(t, []string{"可"}, chars)
}
