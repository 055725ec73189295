package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/adforge/adforge-backend/internal/repos/testutil"
	"github.com/adforge/adforge-backend/internal/types"
)

func TestStageRunUpsertReplacesExisting(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	users := NewUserRepo(db, log)
	campaigns := NewCampaignRepo(db, log)
	runs := NewStageRunRepo(db, log)

	ctx := context.Background()
	user, err := users.Create(ctx, tx, &types.User{
		Email:     "repo-test@example.com",
		Password:  "hashed",
		FirstName: "Repo",
		LastName:  "Test",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	campaign, err := campaigns.Create(ctx, tx, &types.Campaign{
		UserID:  user.ID,
		Name:    "sleep tea launch",
		Status:  types.CampaignStatusDraft,
		Product: datatypes.JSON([]byte(`{"name":"SleepWell Tea"}`)),
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	first, err := runs.UpsertByCampaignAndStage(ctx, tx, &types.StageRun{
		CampaignID: campaign.ID,
		Stage:      "avatar",
		Status:     types.StageRunStatusSucceeded,
		Payload:    datatypes.JSON([]byte(`{"pain_points":["tired"]}`)),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	_, err = runs.UpsertByCampaignAndStage(ctx, tx, &types.StageRun{
		CampaignID: campaign.ID,
		Stage:      "avatar",
		Status:     types.StageRunStatusSucceeded,
		Payload:    datatypes.JSON([]byte(`{"pain_points":["stressed"]}`)),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := runs.GetByCampaignAndStage(ctx, tx, campaign.ID, "avatar")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("stage run not found")
	}
	if got.ID != first.ID {
		t.Fatalf("upsert created a second row: %s vs %s", got.ID, first.ID)
	}
	if string(got.Payload) == `{"pain_points":["tired"]}` {
		t.Fatalf("payload not replaced")
	}

	all, err := runs.GetByCampaignID(ctx, tx, campaign.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows: got=%d want=1", len(all))
	}
}

func TestStageRunNilIDsReturnEmpty(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	runs := NewStageRunRepo(db, log)

	ctx := context.Background()
	got, err := runs.GetByCampaignAndStage(ctx, nil, uuid.Nil, "avatar")
	if err != nil || got != nil {
		t.Fatalf("nil campaign id: got=%v err=%v", got, err)
	}
	list, err := runs.GetByCampaignID(ctx, nil, uuid.Nil)
	if err != nil || len(list) != 0 {
		t.Fatalf("nil campaign list: got=%v err=%v", list, err)
	}
}
