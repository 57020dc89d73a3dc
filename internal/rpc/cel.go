package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"

	"github.com/semperai/amica-bridge/internal/hooks"
)

// celEnv is shared by every compiled condition; conditions see the event name
// and the payload as a dynamic map.
var celEnv = mustCELEnv()

func mustCELEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("event", cel.StringType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("building CEL environment: %v", err))
	}
	return env
}

// compileCondition turns a client-supplied CEL expression into a hook
// condition. The expression must evaluate to bool; evaluation failures at
// trigger time skip the hook rather than failing the pipeline.
func compileCondition(expr string) (hooks.Condition, error) {
	ast, iss := celEnv.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compiling condition: %w", iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building condition program: %w", err)
	}

	return func(hc hooks.Context) bool {
		out, _, err := prg.Eval(map[string]any{
			"event":   string(hc.Event),
			"payload": payloadMap(hc.Payload),
		})
		if err != nil {
			log.Debug().Err(err).Str("event", string(hc.Event)).Msg("Condition evaluation failed, skipping hook")
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}

// payloadMap flattens a typed payload to a generic map for CEL evaluation.
func payloadMap(p any) map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
