package localstore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStore_GetMissing(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	defer s.Close()

	_, found, err := s.Get(context.Background(), "weeklySchedule")
	if err != nil {
		t.Fatalf("Get 不应报错: %v", err)
	}
	if found {
		t.Error("空库中不应找到 key")
	}
}

func TestStore_PutAllOverwrite(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.PutAll(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("PutAll 失败: %v", err)
	}
	if err := s.PutAll(ctx, map[string][]byte{"a": []byte("3")}); err != nil {
		t.Fatalf("PutAll 覆盖失败: %v", err)
	}

	v, found, _ := s.Get(ctx, "a")
	if !found || string(v) != "3" {
		t.Errorf("期望 a=3，实际=%q found=%v", v, found)
	}
	v, found, _ = s.Get(ctx, "b")
	if !found || string(v) != "2" {
		t.Errorf("期望 b=2，实际=%q found=%v", v, found)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, found, _ := s.Get(ctx, "a"); found {
		t.Error("删除后不应找到 a")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	if err := s.PutAll(ctx, map[string][]byte{"activities": []byte(`[]`)}); err != nil {
		t.Fatalf("PutAll 失败: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("重新 Open 失败: %v", err)
	}
	defer s.Close()

	v, found, err := s.Get(ctx, "activities")
	if err != nil || !found || string(v) != "[]" {
		t.Errorf("重启后应读到原值，实际=%q found=%v err=%v", v, found, err)
	}
}
