package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/oklog/run"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsharness/harness/internal/fetch"
	"github.com/opsharness/harness/internal/session"
	"github.com/opsharness/harness/internal/shell"
)

type fakeEC2 struct {
	instances []ec2types.Instance
	input     *ec2.DescribeInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.input = params
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: f.instances}},
	}, nil
}

func (f *fakeEC2) DescribeNetworkInterfaces(context.Context, *ec2.DescribeNetworkInterfacesInput, ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error) {
	return &ec2.DescribeNetworkInterfacesOutput{}, nil
}

func (f *fakeEC2) DescribeImages(context.Context, *ec2.DescribeImagesInput, ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	return &ec2.DescribeImagesOutput{}, nil
}

// fakeSessions yields one session per region, all sharing one EC2 client.
type fakeSessions struct {
	client fetch.EC2API
	scopes []session.Scope
}

func (f *fakeSessions) Enumerate(_ context.Context, scope session.Scope) iter.Seq[session.Candidate] {
	f.scopes = append(f.scopes, scope)
	return func(yield func(session.Candidate) bool) {
		for _, region := range []string{"eu-central-1", "eu-west-1"} {
			c := session.Candidate{
				Target:  session.Target{Profile: scope.Profile, Region: region},
				Session: &session.Session{Profile: scope.Profile, Region: region, Clients: fetch.Clients{EC2: f.client}},
			}
			if !yield(c) {
				return
			}
		}
	}
}

type fakeRunner struct {
	commands []shell.Command
	err      error
}

func (f *fakeRunner) Run(_ context.Context, cmd shell.Command) error {
	f.commands = append(f.commands, cmd)
	return f.err
}

type fakeDocker struct {
	stopped []string
	removed []string
	images  []string
	stopErr error
}

func (f *fakeDocker) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	return f.stopErr
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDocker) ImageRemove(_ context.Context, id string, _ image.RemoveOptions) ([]image.DeleteResponse, error) {
	f.images = append(f.images, id)
	return nil, nil
}

const testConfig = `
aws:
  region: eu-west-1
docker:
  image_name: ops
  image_tag: "1.2"
  container_name: ops-shell
ansible:
  inventory_file: hosts.ini
`

// workspace switches to a fresh directory holding harness.yaml.
func workspace(t *testing.T, cfg string) string {
	t.Helper()
	dir := t.TempDir()
	if cfg != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "harness.yaml"), []byte(cfg), 0o600))
	}
	t.Chdir(dir)
	return dir
}

func named(id, name string) ec2types.Instance {
	return ec2types.Instance{
		InstanceId: aws.String(id),
		State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		Tags:       []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}},
	}
}

func testApp() (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return newApp(&stdout, &stderr), &stdout, &stderr
}

func TestExecute_SearchJSON(t *testing.T) {
	workspace(t, "")
	client := &fakeEC2{instances: []ec2types.Instance{
		named("i-2", "web-b"),
		named("i-1", "web-a"),
	}}
	sessions := &fakeSessions{client: client}

	a, stdout, _ := testApp()
	a.sessions = sessions

	code := execute(a, []string{"search", "ec2", "ids", "i-1, i-2", "-o", "json", "-p", "ops"})
	require.Equal(t, 0, code)

	require.Len(t, sessions.scopes, 1)
	assert.Equal(t, session.Scope{Profile: "ops", Region: "eu-central-1"}, sessions.scopes[0])
	assert.Equal(t, []string{"i-1", "i-2"}, client.input.InstanceIds)

	dec := json.NewDecoder(stdout)
	var regions []string
	for dec.More() {
		var doc struct {
			Profile string           `json:"profile"`
			Region  string           `json:"region"`
			Data    []map[string]any `json:"data"`
		}
		require.NoError(t, dec.Decode(&doc))
		assert.Equal(t, "ops", doc.Profile)
		require.Len(t, doc.Data, 2)
		assert.Equal(t, "i-1", doc.Data[0]["InstanceId"])
		assert.Equal(t, "i-2", doc.Data[1]["InstanceId"])
		regions = append(regions, doc.Region)
	}
	assert.Equal(t, []string{"eu-central-1", "eu-west-1"}, regions)
}

func TestExecute_SearchRegionFromConfig(t *testing.T) {
	workspace(t, testConfig)
	sessions := &fakeSessions{client: &fakeEC2{}}

	a, stdout, _ := testApp()
	a.sessions = sessions

	code := execute(a, []string{"search", "ec2", "tag", "Env=prod"})
	require.Equal(t, 0, code)

	require.Len(t, sessions.scopes, 1)
	assert.Equal(t, session.Scope{Profile: "default", Region: "eu-west-1"}, sessions.scopes[0])
	assert.Contains(t, stdout.String(), "[+] Session created for profile 'default' and region 'eu-central-1'")
}

func TestExecute_SearchUnknownFormat(t *testing.T) {
	workspace(t, "")
	a, stdout, stderr := testApp()
	a.sessions = &fakeSessions{client: &fakeEC2{}}

	code := execute(a, []string{"search", "ec2", "ids", "i-1", "-o", "yaml"})
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), `unknown output format "yaml"`)
}

func TestExecute_SearchBadTag(t *testing.T) {
	workspace(t, "")
	a, _, stderr := testApp()
	a.sessions = &fakeSessions{client: &fakeEC2{}}

	code := execute(a, []string{"search", "ec2", "tag", "Env"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestExecute_MissingExplicitConfig(t *testing.T) {
	workspace(t, "")
	a, _, stderr := testApp()

	code := execute(a, []string{"--config", "nope.yaml", "git", "update"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "read config file")
}

func TestExecute_Version(t *testing.T) {
	a, stdout, _ := testApp()

	code := execute(a, []string{"--version"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "harness "+version+"\n", stdout.String())
}

func TestExecute_DockerBuild(t *testing.T) {
	dir := workspace(t, testConfig)
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	code := execute(a, []string{"docker", "build"})
	require.Equal(t, 0, code)

	require.Len(t, runner.commands, 1)
	assert.Equal(t, "docker", runner.commands[0].Name)
	assert.Equal(t, []string{"build", "-t", "ops:1.2", "."}, runner.commands[0].Args)
	assert.Equal(t, dir, runner.commands[0].Dir)
}

func TestExecute_DockerRunFlags(t *testing.T) {
	workspace(t, testConfig)
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	code := execute(a, []string{"docker", "run", "--aws=false", "--ssh=false"})
	require.Equal(t, 0, code)

	require.Len(t, runner.commands, 1)
	assert.Equal(t, []string{"run", "--rm", "-w", "/root", "--name", "ops-shell", "-it", "ops:1.2", "sh"}, runner.commands[0].Args)
	assert.Empty(t, runner.commands[0].Env)
}

func TestExecute_DockerMissingSetting(t *testing.T) {
	workspace(t, "")
	a, _, stderr := testApp()
	a.runner = &fakeRunner{}

	code := execute(a, []string{"docker", "build"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "you must set docker.image_name in harness.yaml")
}

func TestExecute_DockerEngineCommands(t *testing.T) {
	workspace(t, testConfig)
	engine := &fakeDocker{}
	a, _, _ := testApp()
	a.dockerClient = engine

	require.Equal(t, 0, execute(a, []string{"docker", "stop"}))
	require.Equal(t, 0, execute(a, []string{"docker", "rm"}))
	require.Equal(t, 0, execute(a, []string{"docker", "rmi"}))

	assert.Equal(t, []string{"ops-shell"}, engine.stopped)
	assert.Equal(t, []string{"ops-shell"}, engine.removed)
	assert.Equal(t, []string{"ops:1.2"}, engine.images)
}

func TestExecute_AnsiblePlay(t *testing.T) {
	workspace(t, testConfig)
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	code := execute(a, []string{"ansible", "play", "site.yml", "-i", "stag.ini", "--extra-args", "--limit 'web 1'", "--", "--check"})
	require.Equal(t, 0, code)

	require.Len(t, runner.commands, 1)
	cmd := runner.commands[0]
	assert.Equal(t, "ansible-playbook", cmd.Name)
	assert.Equal(t, []string{"-i", "stag.ini"}, cmd.Args[:2])
	assert.Equal(t, "site.yml", cmd.Args[4])
	assert.Equal(t, []string{"--check", "--limit", "web 1"}, cmd.Args[5:])
}

func TestExecute_AnsibleDeploy(t *testing.T) {
	dir := workspace(t, testConfig)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".registry_password.secrets"), []byte("s3cret\n"), 0o600))
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	code := execute(a, []string{"ansible", "deploy", "stag"})
	require.Equal(t, 0, code)

	require.Len(t, runner.commands, 1)
	cmd := runner.commands[0]
	assert.Contains(t, cmd.Args, filepath.Join("playbooks", "deploy_apps.yml"))
	assert.Contains(t, cmd.Args, "env=stag")
	assert.Contains(t, cmd.Args, "registry_password=s3cret")
	assert.NotContains(t, cmd.String(), "s3cret")
}

func TestExecute_AnsibleDeployUnknownEnv(t *testing.T) {
	workspace(t, testConfig)
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	code := execute(a, []string{"ansible", "deploy", "dev"})
	assert.Equal(t, 1, code)
	assert.Empty(t, runner.commands)
}

func TestExecute_GitUpdate(t *testing.T) {
	dir := workspace(t, "")
	runner := &fakeRunner{}
	a, _, _ := testApp()
	a.runner = runner

	require.Equal(t, 0, execute(a, []string{"git", "update"}))

	require.Len(t, runner.commands, 1)
	assert.Equal(t, "git", runner.commands[0].Name)
	assert.Equal(t, dir, runner.commands[0].Dir)
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, exitCode(&stderr, nil))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 130, exitCode(&stderr, &run.SignalError{Signal: os.Interrupt}))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, exitCode(&stderr, errors.New("boom")))
	assert.Equal(t, "Error: boom\n", stderr.String())
}

func TestExitCode_ChildStatus(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	runErr := exec.Command(sh, "-c", "exit 3").Run()
	require.Error(t, runErr)

	var stderr bytes.Buffer
	assert.Equal(t, 3, exitCode(&stderr, runErr))
	assert.Equal(t, "Error: exit status 3\n", stderr.String())
}
