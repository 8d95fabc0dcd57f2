package core

import (
	"context"
	"testing"
)

// placementEnv is an empty 500x500 m area. With the EU868 link budget cut
// down to a -85 dBm sensitivity, a gateway reaches about 320 m, so only the
// centre covers every cell.
func placementEnv(t *testing.T) (*Environment, Protocol) {
	t.Helper()
	env := mustEnv(t, 500, 500, 50)
	return env, NewLoRaWAN("EU868", 12, 125)
}

func TestSuggestGatewayPositionPrefersCentre(t *testing.T) {
	env, proto := placementEnv(t)

	best, err := SuggestGatewayPosition(context.Background(), env, proto, -85, 250)
	if err != nil {
		t.Fatalf("SuggestGatewayPosition failed: %v", err)
	}
	if best.X != 250 || best.Y != 250 {
		t.Fatalf("best position = (%v,%v), want the centre (250,250)", best.X, best.Y)
	}
	if best.Score <= 0 {
		t.Fatalf("expected a positive score, got %v", best.Score)
	}
}

func TestSuggestGatewayPositions(t *testing.T) {
	env, proto := placementEnv(t)
	opts := PlacementOptions{SensitivityDBm: f64(-85)}

	placements, err := SuggestGatewayPositions(context.Background(), env, proto, 2, opts)
	if err != nil {
		t.Fatalf("SuggestGatewayPositions failed: %v", err)
	}
	if len(placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(placements))
	}
	for i, p := range placements {
		if p.Rank != i+1 {
			t.Fatalf("placement %d has rank %d", i, p.Rank)
		}
		if p.X < 0 || p.X > env.Width || p.Y < 0 || p.Y > env.Height {
			t.Fatalf("placement %d out of bounds: (%v,%v)", i, p.X, p.Y)
		}
	}
	// Each additional gateway can only improve the configuration's score.
	if placements[1].Score < placements[0].Score {
		t.Fatalf("second gateway lowered the score: %v -> %v",
			placements[0].Score, placements[1].Score)
	}

	// The search scratches candidate transmitters into the environment; none
	// may survive it.
	if len(env.Transmitters) != 0 {
		t.Fatalf("placement search leaked %d transmitters", len(env.Transmitters))
	}
}

func TestSuggestGatewayPositionsReportsMetrics(t *testing.T) {
	env, proto := placementEnv(t)
	m := &captureMetrics{}
	opts := PlacementOptions{SensitivityDBm: f64(-85), Metrics: m}

	if _, err := SuggestGatewayPositions(context.Background(), env, proto, 1, opts); err != nil {
		t.Fatalf("SuggestGatewayPositions failed: %v", err)
	}
	if m.phases["coarse"] == 0 {
		t.Fatalf("expected coarse-phase evaluations to be recorded")
	}
	if m.phases["fine"] == 0 {
		t.Fatalf("expected fine-phase evaluations to be recorded")
	}
}

// A sensitivity threshold of 0 dBm is a deliberate choice and must not be
// swapped for the protocol default; only a nil pointer means "unset".
func TestPlacementOptionsZeroSensitivityRetained(t *testing.T) {
	env, proto := placementEnv(t)

	opts := PlacementOptions{SensitivityDBm: f64(0)}.withDefaults(env, proto)
	if *opts.SensitivityDBm != 0 {
		t.Fatalf("explicit 0 dBm sensitivity replaced with %v", *opts.SensitivityDBm)
	}

	opts = PlacementOptions{}.withDefaults(env, proto)
	if *opts.SensitivityDBm != proto.SensitivityDBm {
		t.Fatalf("unset sensitivity = %v, want the protocol's %v", *opts.SensitivityDBm, proto.SensitivityDBm)
	}
}

func TestSuggestGatewayPositionsCancelled(t *testing.T) {
	env, proto := placementEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := SuggestGatewayPositions(ctx, env, proto, 1, PlacementOptions{}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

// Obstacles steer the search: with the right half of the area walled off by
// heavy attenuation, the best position shifts into the open left half.
func TestPlacementAvoidsShadowedArea(t *testing.T) {
	env, proto := placementEnv(t)
	env.AddRectObstacle(RectObstacle{
		Rect:          Rect{X: 350, Y: 0, Width: 150, Height: 500},
		AttenuationDB: 60,
		Material:      "metal",
	})

	opts := PlacementOptions{SensitivityDBm: f64(-85), CoarseStep: 125}
	placements, err := SuggestGatewayPositions(context.Background(), env, proto, 1, opts)
	if err != nil {
		t.Fatalf("SuggestGatewayPositions failed: %v", err)
	}
	if placements[0].X > 350 {
		t.Fatalf("best position (%v,%v) sits inside the walled-off area", placements[0].X, placements[0].Y)
	}
}
