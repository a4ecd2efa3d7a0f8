package pattern

import (
	"errors"
	"strings"
	"testing"
)

func TestNewIsEmpty(t *testing.T) {
	p := New(4, 3)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !p.IsEmpty() {
		t.Error("new pattern should be empty")
	}
	if len(p.Data) != 3 || len(p.Data[0]) != 4 {
		t.Errorf("unexpected shape %dx%d", len(p.Data[0]), len(p.Data))
	}
}

func TestFromRows(t *testing.T) {
	p := FromRows(
		"#.#",
		".#.",
	)
	if p.Width != 3 || p.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", p.Width, p.Height)
	}
	if got := p.ActiveCount(); got != 3 {
		t.Errorf("ActiveCount() = %d, want 3", got)
	}
	if !p.At(0, 0) || p.At(1, 0) || !p.At(1, 1) {
		t.Error("cells decoded incorrectly")
	}
	if p.At(-1, 0) || p.At(0, 5) {
		t.Error("out-of-range cells must be empty")
	}
}

func TestValidateRejectsMismatchedRows(t *testing.T) {
	p := &DotPattern{Width: 3, Height: 2, Data: [][]bool{{true, false, true}, {true}}}
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error %v should match ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "data[1]") {
		t.Errorf("error should name the bad row: %v", err)
	}
}

func TestValidateRejectsDimensions(t *testing.T) {
	cases := []struct {
		name string
		p    *DotPattern
		want string
	}{
		{"nil", nil, "missing"},
		{"zero width", &DotPattern{Width: 0, Height: 1, Data: [][]bool{{}}}, "width"},
		{"negative height", &DotPattern{Width: 1, Height: -1}, "height"},
		{"row count", &DotPattern{Width: 1, Height: 2, Data: [][]bool{{true}}}, "rows"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(`{"width":2,"height":1,"data":[[true,false]]}`))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if p.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", p.ActiveCount())
	}
	if _, err := ParseJSON([]byte(`{"width":2,"height":1,"data":[[true]]}`)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ParseJSON([]byte(`{`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	p := DefaultParams()
	p.CubeSize = 0
	p.CubeHeight = -1
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for non-positive sizes")
	}
	var errs Errors
	if !errors.As(err, &errs) || len(errs) != 2 {
		t.Fatalf("expected 2 findings, got %v", err)
	}

	p = DefaultParams()
	p.GenerateBase = true
	p.BaseThickness = 0
	if err := p.Validate(); err == nil {
		t.Error("expected error for zero base thickness")
	}

	p = DefaultParams()
	p.GenerateBase = false
	p.BaseThickness = 0
	if err := p.Validate(); err != nil {
		t.Errorf("base thickness should be ignored without a base: %v", err)
	}

	p = DefaultParams()
	p.ChamferEdges = true
	p.ChamferSize = p.CubeSize
	if err := p.Validate(); err == nil {
		t.Error("expected error for oversized chamfer")
	}
}

func TestPitch(t *testing.T) {
	p := GenerationParams{CubeSize: 2, Spacing: 0.5}
	if p.Pitch() != 2.5 {
		t.Errorf("Pitch() = %v, want 2.5", p.Pitch())
	}
}
