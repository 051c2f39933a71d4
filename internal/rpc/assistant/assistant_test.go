package assistant

import "testing"

func TestMethodConstants(t *testing.T) {
	t.Parallel()

	if MethodChat != "/pixelcraft.assistant.Assistant/Chat" {
		t.Fatalf("unexpected MethodChat: %q", MethodChat)
	}
	if MethodHealth != "/pixelcraft.assistant.Assistant/Health" {
		t.Fatalf("unexpected MethodHealth: %q", MethodHealth)
	}
}

func TestServiceDescShape(t *testing.T) {
	t.Parallel()

	if AssistantServiceDesc.ServiceName != ServiceName {
		t.Fatalf("service name mismatch: %q", AssistantServiceDesc.ServiceName)
	}
	if len(AssistantServiceDesc.Methods) != 2 {
		t.Fatalf("expected 2 unary methods, got %d", len(AssistantServiceDesc.Methods))
	}
	if len(AssistantServiceDesc.Streams) != 0 {
		t.Fatalf("expected no streaming methods, got %d", len(AssistantServiceDesc.Streams))
	}
}
