package policy

import (
	"context"
	"strings"
	"testing"
)

func TestMocksWildcardMatchersBlock(t *testing.T) {
	root := writeTree(t, map[string]string{
		"svc.go": "package a\n\nfunc Do() {}\n",
		"svc_test.go": "package a\n\nimport (\n\t\"testing\"\n\n\t\"github.com/stretchr/testify/mock\"\n)\n\n" +
			"func TestDo(t *testing.T) {\n" +
			"\tm := new(mock.Mock)\n" +
			"\tm.On(\"Do\", mock.Anything).Return(nil)\n" +
			"}\n",
	})
	rep, err := runMocks(context.Background(), testEnv(root))
	if err != nil {
		t.Fatalf("runMocks: %v", err)
	}
	blocking := rep.Blocking()
	if len(blocking) != 1 {
		t.Fatalf("got %d violations, want 1: %+v", len(blocking), blocking)
	}
	if blocking[0].Category != "wildcard-matcher" || !strings.Contains(blocking[0].Message, "mock.Anything") {
		t.Errorf("violation = %+v", blocking[0])
	}
}

func TestMocksWildcardOutsideChangedSetTolerated(t *testing.T) {
	root := writeTree(t, map[string]string{
		"svc.go": "package a\n\nfunc Do() {}\n",
		"svc_test.go": "package a\n\nimport \"github.com/stretchr/testify/mock\"\n\n" +
			"var arg = mock.Anything\n",
		"other.go": "package a\n\nfunc Other() {}\n",
	})
	env := testEnv(root)
	env.Changed = []string{"other.go"}
	rep, err := runMocks(context.Background(), env)
	if err != nil {
		t.Fatalf("runMocks: %v", err)
	}
	if !rep.Passed() {
		t.Errorf("wildcards in untouched files are old debt: %+v", rep.Blocking())
	}
}

func TestMocksRatioGate(t *testing.T) {
	// 3 lines of source against ~80 lines of tests in the same package.
	root := writeTree(t, map[string]string{
		"tiny.go":      "package a\n\nfunc Tiny() {}\n",
		"tiny_test.go": testFileWithSkips(0, 16),
	})
	rep, err := runMocks(context.Background(), testEnv(root))
	if err != nil {
		t.Fatalf("runMocks: %v", err)
	}
	found := false
	for _, v := range rep.Blocking() {
		if v.Category == "mock-tax" {
			found = true
		}
	}
	if !found {
		t.Errorf("an extreme test ratio must block: %+v", rep.Violations)
	}
}

func TestMocksSleepWarns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go": "package a\n\nfunc Do() {}\n",
		"a_test.go": "package a\n\nimport (\n\t\"testing\"\n\t\"time\"\n)\n\n" +
			"func TestDo(t *testing.T) {\n\ttime.Sleep(time.Second)\n}\n",
	})
	rep, err := runMocks(context.Background(), testEnv(root))
	if err != nil {
		t.Fatalf("runMocks: %v", err)
	}
	if len(rep.Blocking()) != 0 {
		t.Errorf("sleep is advisory only: %+v", rep.Blocking())
	}
	warned := false
	for _, w := range rep.Warnings() {
		if w.Category == "sleep-sync" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("time.Sleep in a test should warn: %+v", rep.Warnings())
	}
}
