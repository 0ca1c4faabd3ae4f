package extractor

import "testing"

const goSample = `package sample

func Add(a, b int) int {
	return a + b
}

type Server struct{}

func (s *Server) Start() error {
	return nil
}

func (s Server) Name() string {
	return "server"
}

func helper() {}
`

func TestListGoFunctions(t *testing.T) {
	path := writeTempFile(t, "sample.go", goSample)

	refs, err := ListFunctions(path)
	if err != nil {
		t.Fatalf("ListFunctions failed: %v", err)
	}

	if len(refs) != 4 {
		t.Fatalf("Expected 4 functions, got %d: %+v", len(refs), refs)
	}

	tests := []struct {
		name     string
		isMethod bool
		receiver string
	}{
		{"Add", false, ""},
		{"Start", true, "Server"},
		{"Name", true, "Server"},
		{"helper", false, ""},
	}

	for i, tt := range tests {
		ref := refs[i]
		if ref.Name != tt.name {
			t.Errorf("refs[%d].Name = %q, want %q", i, ref.Name, tt.name)
		}
		if ref.IsMethod != tt.isMethod {
			t.Errorf("refs[%d].IsMethod = %v, want %v", i, ref.IsMethod, tt.isMethod)
		}
		if ref.Receiver != tt.receiver {
			t.Errorf("refs[%d].Receiver = %q, want %q", i, ref.Receiver, tt.receiver)
		}
		if ref.Language != "go" {
			t.Errorf("refs[%d].Language = %q, want go", i, ref.Language)
		}
		if ref.StartLine <= 0 || ref.EndLine < ref.StartLine {
			t.Errorf("refs[%d] has bad line range %d-%d", i, ref.StartLine, ref.EndLine)
		}
	}
}

func TestGoQualifiedName(t *testing.T) {
	path := writeTempFile(t, "sample.go", goSample)

	refs, err := ListFunctions(path)
	if err != nil {
		t.Fatalf("ListFunctions failed: %v", err)
	}

	if got := refs[1].QualifiedName(); got != "Server.Start" {
		t.Errorf("QualifiedName = %q, want Server.Start", got)
	}
	if got := refs[0].QualifiedName(); got != "Add" {
		t.Errorf("QualifiedName = %q, want Add", got)
	}
}
