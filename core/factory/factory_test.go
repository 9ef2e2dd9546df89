package factory

import "testing"

type sample struct{ A int }

type sampleConf struct {
	A int `json:"a"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 {
		t.Fatalf("expected 3 got %d", inst.A)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

// Test string values are converted and names are listed.
func TestRegistry_WeakDecodeAndNames(t *testing.T) {
	reg := NewRegistry[*sample]()
	for _, n := range []string{"b", "a"} {
		if err := reg.Register(n, func(conf map[string]any) (*sample, error) {
			var c sampleConf
			if err := Decode(conf, &c); err != nil {
				return nil, err
			}
			return &sample{A: c.A}, nil
		}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	inst, err := reg.Create(ModuleConfig{Type: "a", Conf: map[string]any{"a": "7"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 7 {
		t.Fatalf("expected 7 got %d", inst.A)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}
}
