package services

import (
	"context"
	"testing"

	"github.com/Dosada05/league-registration/models"
	"github.com/Dosada05/league-registration/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionDocument = `{"fields":[
		{"name":"firstName","dbColumn":"FirstName","displayName":"First Name","inputType":"TEXT","visibility":"public","order":1,"validation":{"required":true}},
		{"name":"gradYear","displayName":"Graduation Year","inputType":"SELECT","dataSource":"gradYears","visibility":"public","order":2},
		{"name":"waiver","displayName":"Liability Waiver","inputType":"CHECKBOX","visibility":"public","order":3,"validation":{"required":true}},
		{"name":"team","displayName":"Team","inputType":"SELECT","dataSource":"teams","visibility":"public","order":4}
	]}`
	sessionOptions = `{"gradYears":[{"value":"2030","text":"2030"}],"teams":[{"value":"t1","text":"2030 Blue"},{"value":"t2","text":"2031 Red"}]}`
)

func newTestRegistrationService(t *testing.T) (RegistrationService, *memJobRepo) {
	t.Helper()
	j := job(7, "Spring League", "PP10|BYGRADYEAR", sessionOptions)
	j.MetadataJSON = strPtr(sessionDocument)
	repo := newMemJobRepo(j, job(8, "Unconfigured", "", ""))
	return NewRegistrationService(repo, nil, 0, 0, nil), repo
}

func TestRegistrationService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestRegistrationService(t)
	ctx := context.Background()

	view, err := svc.CreateSession(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, models.ProfileType("PP10"), view.ProfileType)
	assert.Equal(t, string(models.ConstraintByGradYear), view.Constraint)
	assert.Len(t, view.Fields, 4)
	assert.Equal(t, "gradYear", view.EligibilityField)
	require.Len(t, view.Waivers, 1)
	assert.Equal(t, "waiver", view.Waivers[0].Name)
	assert.Equal(t, int(DefaultSessionTTL.Seconds()), view.ExpiresInSeconds)

	visible, err := svc.SelectEntity(ctx, view.SessionID, "player-1", registration.Seed{
		Prior: map[string]any{"FirstName": "Ana"},
	})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "firstName", visible[0].Name)

	got, err := svc.GetSession(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"player-1"}, got.Selected)

	result, err := svc.Validate(ctx, view.SessionID, "player-1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "waiver", result.Errors[0].Field)
	assert.Equal(t, "You must accept the Liability Waiver.", result.Errors[0].Message)

	require.NoError(t, svc.AcceptWaiver(ctx, view.SessionID, "waiver", true))
	require.NoError(t, svc.SetEligibility(ctx, view.SessionID, "player-1", "2030"))

	result, err = svc.Validate(ctx, view.SessionID, "player-1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	teams, err := svc.EligibleTeams(ctx, view.SessionID, "player-1")
	require.NoError(t, err)
	assert.Equal(t, []models.Option{{Value: "t1", Label: "2030 Blue"}}, teams)

	require.NoError(t, svc.SetFieldValue(ctx, view.SessionID, "player-1", "team", "t1"))
	payload, err := svc.Payload(ctx, view.SessionID, "player-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", payload["firstName"])
	assert.Equal(t, "2030", payload["gradYear"])
	assert.Equal(t, "t1", payload["team"])
	assert.Equal(t, true, payload["waiver"])

	require.NoError(t, svc.DeselectEntity(ctx, view.SessionID, "player-1"))
	_, err = svc.VisibleFields(ctx, view.SessionID, "player-1")
	assert.ErrorIs(t, err, ErrEntityNotSelected)

	require.NoError(t, svc.CloseSession(ctx, view.SessionID))
	_, err = svc.GetSession(ctx, view.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistrationService_ErrorMapping(t *testing.T) {
	svc, _ := newTestRegistrationService(t)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, 404)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	view, err := svc.CreateSession(ctx, 7)
	require.NoError(t, err)

	err = svc.SetFieldValue(ctx, view.SessionID, "nobody", "firstName", "x")
	assert.ErrorIs(t, err, ErrEntityNotSelected)

	_, err = svc.SelectEntity(ctx, view.SessionID, "  ", registration.Seed{})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.SelectEntity(ctx, view.SessionID, "p1", registration.Seed{})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetFieldValue(ctx, view.SessionID, "p1", "shoeSize", "9"), ErrFieldNotFound)
	assert.ErrorIs(t, svc.AcceptWaiver(ctx, view.SessionID, "firstName", true), ErrNotWaiverField)
	assert.ErrorIs(t, svc.AcceptWaiver(ctx, view.SessionID, "shoeSize", true), ErrFieldNotFound)
	assert.NoError(t, svc.AcceptAllWaivers(ctx, view.SessionID, true))
}

func TestRegistrationService_JobWithoutMetadataRendersNothing(t *testing.T) {
	svc, _ := newTestRegistrationService(t)

	view, err := svc.CreateSession(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, view.Fields)
	assert.Empty(t, view.EligibilityField)
}
