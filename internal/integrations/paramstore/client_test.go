package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	getOut  *ssm.GetParameterOutput
	getErr  error
	lastReq *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastReq = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func valueOut(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: strPtr(v)}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: valueOut("https://answers.example.com")}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /widget/answer_base_url ")
	require.NoError(t, err)
	require.Equal(t, "https://answers.example.com", v)
	require.Equal(t, "/widget/answer_base_url", *api.lastReq.Name)
	require.True(t, *api.lastReq.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{Message: strPtr("nope")}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorIs(t, err, ErrParameterNotFound)
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrParameterNotFound)
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestPath(t *testing.T) {
	require.Equal(t, "/widget/answer_base_url", Path("/widget/", "answer_base_url"))
	require.Equal(t, "/widget/answer_base_url", Path("widget", "/answer_base_url"))
	require.Equal(t, "/answer_base_url", Path("", "answer_base_url"))
}

func TestLookup(t *testing.T) {
	client, err := New(&fakeAPI{getOut: valueOut("v")})
	require.NoError(t, err)
	v, ok, err := Lookup(context.Background(), client, "/widget", "answer_base_url")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	client, err = New(&fakeAPI{getErr: &types.ParameterNotFound{}})
	require.NoError(t, err)
	_, ok, err = Lookup(context.Background(), client, "/widget", "answer_base_url")
	require.NoError(t, err)
	require.False(t, ok)

	client, err = New(&fakeAPI{getErr: errors.New("throttled")})
	require.NoError(t, err)
	_, _, err = Lookup(context.Background(), client, "/widget", "answer_base_url")
	require.ErrorContains(t, err, "throttled")
}
