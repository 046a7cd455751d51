package debugdump

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmwm/dbs3-uploader/internal/block"
)

func TestDisabledDumperWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "block.json")

	d := New(false, path)
	if err := d.Write(block.Payload{Name: "b1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written, stat err: %v", err)
	}
}

func TestNilDumperIsNoOp(t *testing.T) {
	var d *Dumper
	if err := d.Write(block.Payload{Name: "b1"}); err != nil {
		t.Fatalf("Write on nil Dumper: %v", err)
	}
}

func TestEnabledDumperOverwritesOnEachWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "block.json")
	d := New(true, path)

	if err := d.Write(block.Payload{Name: "block-one"}); err != nil {
		t.Fatalf("Write first: %v", err)
	}

	var first block.Payload
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read first dump: %v", err)
	}
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatalf("unmarshal first dump: %v", err)
	}
	if first.Name != "block-one" {
		t.Fatalf("expected block-one, got %s", first.Name)
	}

	if err := d.Write(block.Payload{Name: "block-two"}); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	var second block.Payload
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read second dump: %v", err)
	}
	if err := json.Unmarshal(data, &second); err != nil {
		t.Fatalf("unmarshal second dump: %v", err)
	}
	if second.Name != "block-two" {
		t.Fatalf("expected overwrite to block-two, got %s", second.Name)
	}
}
