package screendetect

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	err := os.WriteFile(path, []byte("A\n  B \n\nA_marker\r\nB_marker\n"), 0o644)
	test.That(t, err, test.ShouldBeNil)

	labels, err := LoadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"A", "B", "A_marker", "B_marker"})
}

func TestLoadLabelsErrors(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "empty.txt")
	test.That(t, os.WriteFile(path, []byte("\n\n"), 0o644), test.ShouldBeNil)

	_, err = LoadLabels(path)
	test.That(t, err, test.ShouldNotBeNil)
}
