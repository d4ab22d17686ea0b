package runtime

import (
	"context"
	"strings"
	"testing"

	"debugoj/internal/validator/model"
)

const (
	cOverflowBuggy = `#include <stdio.h>
#include <string.h>

int main() {
    char buffer[10];
    const char *input = "Hello";
    strcpy(buffer, input);
    printf("%s\n", buffer);
    return 0;
}`
	cOverflowFixed = `#include <stdio.h>
#include <string.h>

int main() {
    char buffer[10];
    const char *input = "Hello";
    strncpy(buffer, input, sizeof(buffer) - 1);
    buffer[sizeof(buffer) - 1] = '\0';
    printf("%s\n", buffer);
    return 0;
}`
	javaIdentityBuggy = `public class Main {
    static boolean checkPassword(String password) {
        String correctPassword = new String("secret");
        return password == correctPassword;
    }
    public static void main(String[] args) {
        System.out.println(checkPassword("secret"));
    }
}`
	javaIdentityFixed = `public class Main {
    static boolean checkPassword(String password) {
        String correctPassword = new String("secret");
        return password.equals(correctPassword);
    }
    public static void main(String[] args) {
        System.out.println(checkPassword("secret"));
    }
}`
)

func TestSimulationAdapter(t *testing.T) {
	t.Parallel()
	adapter := NewSimulationAdapter(SimulationConfig{}, nil)
	cRef := &model.ReferenceContext{BuggyCode: cOverflowBuggy, FixedCode: cOverflowFixed, ExpectedOutput: "Hello"}
	javaRef := &model.ReferenceContext{BuggyCode: javaIdentityBuggy, FixedCode: javaIdentityFixed, ExpectedOutput: "true", BuggyOutput: "false"}

	tests := []struct {
		name       string
		lang       model.Language
		code       string
		ref        *model.ReferenceContext
		wantKind   model.ErrorKind
		wantOutput string
		wantBug    string
	}{
		{name: "c buggy crashes", lang: model.LanguageC, code: cOverflowBuggy, ref: cRef, wantKind: model.ErrorRuntime, wantOutput: crashStackSmash, wantBug: "unbounded_strcpy"},
		{name: "c reference fix", lang: model.LanguageC, code: cOverflowFixed, ref: cRef, wantOutput: "Hello"},
		{
			name:       "c strncpy without terminator",
			lang:       model.LanguageC,
			code:       strings.Replace(cOverflowFixed, "    buffer[sizeof(buffer) - 1] = '\\0';\n", "", 1),
			ref:        cRef,
			wantOutput: "Hello\u00ff\u00fe\u00ad",
			wantBug:    "unterminated_strncpy",
		},
		{
			name:       "c fix with comments and spacing",
			lang:       model.LanguageC,
			code:       strings.Replace(cOverflowFixed, "strncpy(buffer, input, sizeof(buffer) - 1);", "strncpy(buffer, input, sizeof(buffer) - 1); /* bounded */", 1),
			ref:        cRef,
			wantOutput: "Hello",
		},
		{name: "java buggy uses known output", lang: model.LanguageJava, code: javaIdentityBuggy, ref: javaRef, wantOutput: "false", wantBug: "string_identity"},
		{
			name:       "java equals fix",
			lang:       model.LanguageJava,
			code:       strings.Replace(javaIdentityBuggy, "password == correctPassword", "correctPassword.equals(password)", 1),
			ref:        javaRef,
			wantOutput: "true",
		},
		{name: "unrelated rewrite", lang: model.LanguageJava, code: "public class Main { public static void main(String[] a) { System.out.println(1); } }", ref: javaRef, wantOutput: SimulationUnavailable},
		{name: "no reference", lang: model.LanguageSQL, code: "SELECT 1", wantOutput: SimulationUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := adapter.Execute(context.Background(), model.ExecutionRequest{SourceCode: tt.code, Language: tt.lang, Reference: tt.ref})
			if !res.Simulated || res.Substrate != model.SubstrateSimulation {
				t.Fatalf("simulation results must be flagged, got %+v", res)
			}
			if res.ErrorKind != tt.wantKind {
				t.Fatalf("kind = %v, want %v (diag %q)", res.ErrorKind, tt.wantKind, res.Diagnostic)
			}
			if res.RawOutput != tt.wantOutput {
				t.Fatalf("output = %q, want %q", res.RawOutput, tt.wantOutput)
			}
			if res.BugSignature != tt.wantBug {
				t.Fatalf("bug signature = %q, want %q", res.BugSignature, tt.wantBug)
			}
		})
	}
}

func TestSimulationIsDeterministic(t *testing.T) {
	t.Parallel()
	adapter := NewSimulationAdapter(SimulationConfig{}, nil)
	req := model.ExecutionRequest{
		SourceCode: cOverflowBuggy,
		Language:   model.LanguageC,
		Reference:  &model.ReferenceContext{BuggyCode: cOverflowBuggy, FixedCode: cOverflowFixed, ExpectedOutput: "Hello"},
	}
	first := adapter.Execute(context.Background(), req)
	for i := 0; i < 5; i++ {
		next := adapter.Execute(context.Background(), req)
		if next.RawOutput != first.RawOutput || next.ErrorKind != first.ErrorKind {
			t.Fatalf("run %d differs: %+v vs %+v", i, next, first)
		}
	}
}

func TestSignatureHits(t *testing.T) {
	t.Parallel()
	var strncpy signature
	for _, sig := range cSignatures() {
		if sig.name == "unterminated_strncpy" {
			strncpy = sig
		}
	}
	if strncpy.hits("strncpy(a, b, 3);") != 1 {
		t.Fatalf("unterminated strncpy should hit")
	}
	if strncpy.hits("strncpy(a, b, 3); a[3] = '\\0';") != 0 {
		t.Fatalf("terminated strncpy should not hit")
	}
	if strncpy.hits("strncpy(a, b, 3); a[3] = 0;") != 0 {
		t.Fatalf("zero terminator should disarm the signature")
	}
}
