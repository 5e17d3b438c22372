package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchpad/internal/models"
)

func TestCreateLaunch(t *testing.T) {
	repo := newStubRepo()
	svc := &LaunchService{Repo: repo}
	launch, err := svc.CreateLaunch(context.Background(), CreateLaunchParams{
		TokenName:        "Arcade",
		TokenSymbol:      "ARC",
		TotalSupply:      "1000000",
		TargetAllocation: 120,
		EndTime:          time.Now().UTC().Add(48 * time.Hour),
		TokenAddress:     "0x28C6c06298d514Db089934071355E5743bf21d60",
		ChainID:          8453,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if launch.ID == "" {
		t.Fatalf("launch id not assigned")
	}
	if launch.Status != models.LaunchStatusActive {
		t.Fatalf("status=%s want active", launch.Status)
	}
	stored, _ := repo.GetLaunchByID(context.Background(), launch.ID)
	if stored == nil {
		t.Fatalf("launch not persisted")
	}
}

func TestCreateLaunchValidation(t *testing.T) {
	svc := &LaunchService{Repo: newStubRepo()}
	future := time.Now().UTC().Add(time.Hour)
	cases := []struct {
		name string
		p    CreateLaunchParams
	}{
		{"empty name", CreateLaunchParams{TokenSymbol: "ARC", TotalSupply: "100", TargetAllocation: 10, EndTime: future}},
		{"empty symbol", CreateLaunchParams{TokenName: "Arcade", TotalSupply: "100", TargetAllocation: 10, EndTime: future}},
		{"zero target", CreateLaunchParams{TokenName: "Arcade", TokenSymbol: "ARC", TotalSupply: "100", EndTime: future}},
		{"past end time", CreateLaunchParams{TokenName: "Arcade", TokenSymbol: "ARC", TotalSupply: "100", TargetAllocation: 10, EndTime: time.Now().UTC().Add(-time.Hour)}},
		{"bad supply", CreateLaunchParams{TokenName: "Arcade", TokenSymbol: "ARC", TotalSupply: "lots", TargetAllocation: 10, EndTime: future}},
		{"target over supply", CreateLaunchParams{TokenName: "Arcade", TokenSymbol: "ARC", TotalSupply: "5", TargetAllocation: 10, EndTime: future}},
		{"bad token address", CreateLaunchParams{TokenName: "Arcade", TokenSymbol: "ARC", TotalSupply: "100", TargetAllocation: 10, EndTime: future, TokenAddress: "0xzz"}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateLaunch(context.Background(), tc.p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got err=%v want ErrInvalidInput", tc.name, err)
		}
	}
}
