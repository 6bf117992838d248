package storage

import "testing"

func TestDecodeKVEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"codeflow","RowKey":"cf_tasks","Data":"[{\"id\":\"t1\"}]"}`)
	payload, err := decodeKVEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(payload) != `[{"id":"t1"}]` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestDecodeKVEntityMalformed(t *testing.T) {
	if _, err := decodeKVEntity([]byte("{oops")); err == nil {
		t.Fatal("expected decode error for malformed entity")
	}
}
