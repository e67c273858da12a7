package actions_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/redock/internal/actions"
	"github.com/nicholas-fedor/redock/internal/actions/mocks"
	"github.com/nicholas-fedor/redock/pkg/metrics"
	"github.com/nicholas-fedor/redock/pkg/types"
)

const (
	webTag      = "ghcr.io/acme/web:1.4"
	webName     = "shop-web-1"
	networkName = "shop_default"
)

var (
	containerID = strings.Repeat("c", 64)
	oldImageID  = "sha256:" + strings.Repeat("a", 64)
	newImageID  = "sha256:" + strings.Repeat("b", 64)
)

// recordingNotifier captures every reported outcome.
type recordingNotifier struct {
	mu      sync.Mutex
	results []*types.UpdateResult
	errs    []error
}

func (n *recordingNotifier) GetNames() []string { return nil }

func (n *recordingNotifier) SendUpdate(_ types.UpdateParams, result *types.UpdateResult, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.results = append(n.results, result)
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) Close() {}

// webContainerConfig returns the config of a typical compose service container.
func webContainerConfig() *container.Config {
	labels := mocks.ComposeLabels("shop", "web")
	labels["org.opencontainers.image.version"] = "1.3"

	return &container.Config{
		Image:      webTag,
		User:       "",
		WorkingDir: "/srv",
		Env:        []string{"PATH=/usr/bin", "DATABASE_URL=postgres://db/shop"},
		Labels:     labels,
		Cmd:        []string{"serve"},
		Entrypoint: []string{"/entrypoint.sh"},
	}
}

func webHostConfig() *container.HostConfig {
	return &container.HostConfig{
		NetworkMode: networkName,
		PortBindings: nat.PortMap{
			"8080/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "80"}},
		},
		Binds:         []string{"/srv/uploads:/uploads"},
		Mounts:        []mount.Mount{{Type: mount.TypeVolume, Source: "shop_cache", Target: "/cache"}},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
}

func webImageDefaults() ocispec.ImageConfig {
	return ocispec.ImageConfig{
		User:       "",
		WorkingDir: "/app",
		Env:        []string{"PATH=/usr/bin"},
		Labels:     map[string]string{"org.opencontainers.image.version": "1.3"},
		Cmd:        []string{"serve"},
		Entrypoint: []string{"/docker-entrypoint.sh"},
	}
}

// newWebEngine returns an engine running the web service on the old image,
// with its tag now pointing at pulledID.
func newWebEngine(pulledID string) *mocks.MockClient {
	current := mocks.CreateMockContainer(containerID, webName, oldImageID, webTag, webContainerConfig(), webHostConfig())
	mocks.WithNetworkAliases(current, networkName, "web", strings.Repeat("c", 12))

	oldImage := mocks.CreateMockImage(oldImageID, []string{webTag}, webImageDefaults())

	pulled := oldImage
	if pulledID != oldImageID {
		newDefaults := webImageDefaults()
		newDefaults.Labels = map[string]string{"org.opencontainers.image.version": "1.4"}
		pulled = mocks.CreateMockImage(pulledID, []string{webTag}, newDefaults)
	}

	return mocks.CreateMockClient(&mocks.TestData{
		Containers: []types.Container{
			mocks.CreateMockContainer("d"+strings.Repeat("0", 63), "shop-db-1", oldImageID, "postgres:17",
				&container.Config{Labels: mocks.ComposeLabels("shop", "db")}, nil),
			current,
		},
		Images:         map[string]types.Image{webTag: oldImage, oldImageID: oldImage},
		Pulls:          map[string]types.Image{webTag: pulled},
		NewContainerID: strings.Repeat("e", 64),
	})
}

func webParams() types.UpdateParams {
	return types.UpdateParams{Project: "shop", Service: "web", Timeout: time.Second}
}

// expectUpdateError asserts the error kind and caller-facing detail.
func expectUpdateError(err error, kind error, detail string) {
	ginkgo.GinkgoHelper()

	gomega.Expect(err).To(gomega.HaveOccurred())
	gomega.Expect(errors.Is(err, kind)).To(gomega.BeTrue(), "unexpected kind: %v", err)

	var updateErr *types.UpdateError
	gomega.Expect(errors.As(err, &updateErr)).To(gomega.BeTrue())
	gomega.Expect(updateErr.Detail).To(gomega.Equal(detail))
}

var _ = ginkgo.Describe("the recreator", func() {
	var (
		notifier *recordingNotifier
		registry *prometheus.Registry
		m        *metrics.Metrics
	)

	ginkgo.BeforeEach(func() {
		notifier = &recordingNotifier{}
		registry = prometheus.NewRegistry()

		var err error

		m, err = metrics.NewWithRegistry(registry)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		ginkgo.DeferCleanup(m.Shutdown)
	})

	ginkgo.When("the container already runs the pulled image", func() {
		ginkgo.It("should only pull", func() {
			client := newWebEngine(oldImageID)
			recreator := actions.NewRecreator(client, notifier, m, time.Second)

			result, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.Recreated).To(gomega.BeFalse())
			gomega.Expect(result.ContainerName).To(gomega.Equal(webName))
			gomega.Expect(result.NewContainerID).To(gomega.BeEmpty())

			gomega.Expect(client.Calls()).To(gomega.Equal([]string{
				"list",
				"image:" + webTag,
				"pull:" + webTag,
			}))
			gomega.Expect(client.CallsOf("stop")).To(gomega.BeEmpty())
			gomega.Expect(client.CallsOf("remove")).To(gomega.BeEmpty())
			gomega.Expect(client.CallsOf("run")).To(gomega.BeEmpty())
		})
	})

	ginkgo.When("the tag points at a new image", func() {
		var (
			client    *mocks.MockClient
			recreator *actions.Recreator
		)

		ginkgo.BeforeEach(func() {
			client = newWebEngine(newImageID)
			recreator = actions.NewRecreator(client, notifier, m, time.Second)
		})

		ginkgo.It("should stop, remove and run in order", func() {
			result, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(client.Calls()).To(gomega.Equal([]string{
				"list",
				"image:" + webTag,
				"pull:" + webTag,
				"stop:" + webName,
				"remove:" + webName,
				"run:" + webName,
			}))
			gomega.Expect(result).To(gomega.Equal(&types.UpdateResult{
				ContainerName:  webName,
				OldImageID:     types.ImageID(oldImageID),
				NewImageID:     types.ImageID(newImageID),
				ImageTag:       webTag,
				Recreated:      true,
				NewContainerID: types.ContainerID(strings.Repeat("e", 64)),
			}))
		})

		ginkgo.It("should reuse the name with an empty hostname and the pulled tag", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(client.RunSpecs()).To(gomega.HaveLen(1))
			spec := client.RunSpecs()[0]
			gomega.Expect(spec.Name).To(gomega.Equal(webName))
			gomega.Expect(spec.Hostname).To(gomega.BeEmpty())
			gomega.Expect(spec.Image).To(gomega.Equal(webTag))
		})

		ginkgo.It("should carry only the settings that differ from the old image", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			spec := client.RunSpecs()[0]
			gomega.Expect(spec.User).To(gomega.BeEmpty())
			gomega.Expect(spec.WorkingDir).To(gomega.Equal("/srv"))
			gomega.Expect(spec.Env).To(gomega.Equal([]string{"DATABASE_URL=postgres://db/shop"}))
			gomega.Expect(spec.Labels).To(gomega.Equal(mocks.ComposeLabels("shop", "web")))
			gomega.Expect(spec.Cmd).To(gomega.BeNil())
			gomega.Expect(spec.Entrypoint).To(gomega.Equal([]string{"/entrypoint.sh"}))
		})

		ginkgo.It("should copy the host configuration verbatim", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			spec := client.RunSpecs()[0]
			expected := webHostConfig()
			gomega.Expect(spec.NetworkMode).To(gomega.Equal(networkName))
			gomega.Expect(spec.PortBindings).To(gomega.Equal(expected.PortBindings))
			gomega.Expect(spec.Binds).To(gomega.Equal(expected.Binds))
			gomega.Expect(spec.Mounts).To(gomega.Equal(expected.Mounts))
			gomega.Expect(spec.RestartPolicy).To(gomega.Equal(expected.RestartPolicy))
		})

		ginkgo.It("should keep user aliases but not the engine's short id", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(client.RunSpecs()[0].NetworkAliases).To(gomega.Equal([]string{"web"}))
		})

		ginkgo.It("should find nothing to do on the next request", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			result, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.Recreated).To(gomega.BeFalse())
			gomega.Expect(client.CallsOf("run")).To(gomega.HaveLen(1))
		})

		ginkgo.It("should notify and count the recreate", func() {
			_, err := recreator.Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(notifier.results).To(gomega.HaveLen(1))
			gomega.Expect(notifier.results[0].Recreated).To(gomega.BeTrue())
			gomega.Expect(notifier.errs[0]).NotTo(gomega.HaveOccurred())

			gomega.Eventually(func() float64 {
				return updatesWithOutcome(registry, metrics.OutcomeRecreated)
			}).Should(gomega.BeNumerically("==", 1))
		})

		ginkgo.It("should finish the replacement when the caller goes away after the stop", func() {
			gate := make(chan struct{})
			client.TestData.Gates = map[string]chan struct{}{"remove:" + webName: gate}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)

			go func() {
				_, err := recreator.Update(ctx, webParams())
				done <- err
			}()

			gomega.Eventually(func() []string { return client.CallsOf("remove") }).Should(gomega.HaveLen(1))
			cancel()
			close(gate)

			gomega.Eventually(done).Should(gomega.Receive(gomega.BeNil()))
			gomega.Expect(client.CallsOf("run")).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("override scenarios", func() {
		run := func(config *container.Config, defaults ocispec.ImageConfig) types.RunSpec {
			ginkgo.GinkgoHelper()

			config.Labels = mergeLabels(config.Labels, mocks.ComposeLabels("shop", "web"))
			current := mocks.CreateMockContainer(containerID, webName, oldImageID, webTag, config, nil)
			client := mocks.CreateMockClient(&mocks.TestData{
				Containers: []types.Container{current},
				Images:     map[string]types.Image{webTag: mocks.CreateMockImage(oldImageID, []string{webTag}, defaults)},
				Pulls:      map[string]types.Image{webTag: mocks.CreateMockImage(newImageID, []string{webTag}, ocispec.ImageConfig{})},
			})

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(client.RunSpecs()).To(gomega.HaveLen(1))

			return client.RunSpecs()[0]
		}

		ginkgo.It("should not set a user that matches the image default", func() {
			spec := run(&container.Config{User: ""}, ocispec.ImageConfig{User: ""})
			gomega.Expect(spec.User).To(gomega.BeEmpty())
		})

		ginkgo.It("should carry a user that differs from the image default", func() {
			spec := run(&container.Config{User: "1000:1000"}, ocispec.ImageConfig{User: "root"})
			gomega.Expect(spec.User).To(gomega.Equal("1000:1000"))
		})

		ginkgo.It("should carry only labels added or changed over the image", func() {
			spec := run(
				&container.Config{Labels: map[string]string{"a": "1", "b": "2"}},
				ocispec.ImageConfig{Labels: map[string]string{"a": "1"}},
			)
			gomega.Expect(spec.Labels).To(gomega.HaveKeyWithValue("b", "2"))
			gomega.Expect(spec.Labels).NotTo(gomega.HaveKey("a"))
		})

		ginkgo.It("should leave the command unset when it matches the image", func() {
			spec := run(&container.Config{Cmd: []string{"serve"}}, ocispec.ImageConfig{Cmd: []string{"serve"}})
			gomega.Expect(spec.Cmd).To(gomega.BeNil())
		})

		ginkgo.It("should carry volumes when the image declares none", func() {
			volumes := map[string]struct{}{"/data": {}}
			spec := run(&container.Config{Volumes: volumes}, ocispec.ImageConfig{})
			gomega.Expect(spec.Volumes).To(gomega.Equal(volumes))
		})
	})

	ginkgo.Describe("failures", func() {
		ginkgo.It("should report a missing container", func() {
			client := newWebEngine(newImageID)

			_, err := actions.NewRecreator(client, notifier, m, 0).Update(
				context.Background(),
				types.UpdateParams{Project: "foo", Service: "bar"},
			)
			expectUpdateError(err, types.ErrNotFound, "Container not found")
			gomega.Expect(client.Calls()).To(gomega.Equal([]string{"list"}))
		})

		ginkgo.It("should report a pruned image", func() {
			client := newWebEngine(newImageID)
			delete(client.TestData.Images, webTag)

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrNotFound, "Image not found")
			gomega.Expect(client.CallsOf("pull")).To(gomega.BeEmpty())
		})

		ginkgo.It("should report an image without tags", func() {
			client := newWebEngine(newImageID)
			untagged := client.TestData.Images[webTag]
			untagged.Tags = nil
			client.TestData.Images[webTag] = untagged

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrNotFound, "Tags not found")
			gomega.Expect(client.CallsOf("pull")).To(gomega.BeEmpty())
		})

		ginkgo.It("should hide engine details from the caller", func() {
			client := newWebEngine(newImageID)
			client.TestData.Errors = map[string]error{"pull:" + webTag: errors.New("registry unreachable")}

			_, err := actions.NewRecreator(client, notifier, m, 0).Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrEngine, "Internal server error")
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("registry unreachable"))
			gomega.Expect(client.CallsOf("stop")).To(gomega.BeEmpty())
			gomega.Expect(notifier.errs).To(gomega.HaveLen(1))
		})

		ginkgo.It("should not remove a container it could not stop", func() {
			client := newWebEngine(newImageID)
			client.TestData.Errors = map[string]error{"stop:" + webName: errors.New("permission denied")}

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrEngine, "Internal server error")
			gomega.Expect(client.CallsOf("remove")).To(gomega.BeEmpty())
			gomega.Expect(client.CallsOf("run")).To(gomega.BeEmpty())
		})

		ginkgo.It("should not roll back when the run is rejected", func() {
			client := newWebEngine(newImageID)
			client.TestData.Errors = map[string]error{"run:" + webName: errors.New("port is already allocated")}

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrEngine, "Internal server error")
			gomega.Expect(client.CallsOf("remove")).To(gomega.HaveLen(1))
			gomega.Expect(client.TestData.Containers).To(gomega.HaveLen(1))
		})

		ginkgo.It("should surface a slow engine call as a timeout", func() {
			client := newWebEngine(newImageID)
			client.TestData.Delays = map[string]time.Duration{"pull:" + webTag: 5 * time.Second}

			params := webParams()
			params.Timeout = 20 * time.Millisecond

			_, err := actions.NewRecreator(client, nil, m, 0).Update(context.Background(), params)
			expectUpdateError(err, types.ErrTimeout, "Engine call timed out")
			gomega.Expect(client.CallsOf("stop")).To(gomega.BeEmpty())

			gomega.Eventually(func() float64 {
				return updatesWithOutcome(registry, metrics.OutcomeTimeout)
			}).Should(gomega.BeNumerically("==", 1))
		})
	})

	ginkgo.Describe("ambiguous services", func() {
		var client *mocks.MockClient

		ginkgo.BeforeEach(func() {
			client = newWebEngine(newImageID)
			replica := mocks.CreateMockContainer(strings.Repeat("f", 64), "shop-web-2", oldImageID, webTag,
				&container.Config{Labels: mocks.ComposeLabels("shop", "web")}, nil)
			client.TestData.Containers = append(client.TestData.Containers, replica)
		})

		ginkgo.It("should use the first match by default", func() {
			result, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), webParams())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.ContainerName).To(gomega.Equal(webName))
		})

		ginkgo.It("should refuse to pick in strict mode", func() {
			params := webParams()
			params.StrictMatch = true

			_, err := actions.NewRecreator(client, nil, nil, 0).Update(context.Background(), params)
			expectUpdateError(err, types.ErrConflict, "Multiple containers match")
			gomega.Expect(client.Calls()).To(gomega.Equal([]string{"list"}))
		})
	})

	ginkgo.Describe("concurrent requests", func() {
		ginkgo.It("should reject a second request for a service being updated", func() {
			client := newWebEngine(newImageID)
			gate := make(chan struct{})
			client.TestData.Gates = map[string]chan struct{}{"pull:" + webTag: gate}

			recreator := actions.NewRecreator(client, nil, nil, 20*time.Millisecond)
			first := make(chan error, 1)

			go func() {
				_, err := recreator.Update(context.Background(), webParams())
				first <- err
			}()

			gomega.Eventually(func() []string { return client.CallsOf("pull") }).Should(gomega.HaveLen(1))

			_, err := recreator.Update(context.Background(), webParams())
			expectUpdateError(err, types.ErrConflict, "Update already in progress")

			close(gate)
			gomega.Eventually(first).Should(gomega.Receive(gomega.BeNil()))
			gomega.Expect(client.CallsOf("list")).To(gomega.HaveLen(1))
		})

		ginkgo.It("should let other services through", func() {
			client := newWebEngine(newImageID)
			gate := make(chan struct{})
			client.TestData.Gates = map[string]chan struct{}{"pull:" + webTag: gate}

			recreator := actions.NewRecreator(client, nil, nil, 20*time.Millisecond)
			first := make(chan error, 1)

			go func() {
				_, err := recreator.Update(context.Background(), webParams())
				first <- err
			}()

			gomega.Eventually(func() []string { return client.CallsOf("pull") }).Should(gomega.HaveLen(1))

			_, err := recreator.Update(context.Background(), types.UpdateParams{Project: "shop", Service: "worker"})
			expectUpdateError(err, types.ErrNotFound, "Container not found")

			close(gate)
			gomega.Eventually(first).Should(gomega.Receive(gomega.BeNil()))
		})
	})
})

// mergeLabels adds extra labels to a possibly nil map.
func mergeLabels(labels, extra map[string]string) map[string]string {
	merged := map[string]string{}

	for k, v := range labels {
		merged[k] = v
	}

	for k, v := range extra {
		merged[k] = v
	}

	return merged
}

// updatesWithOutcome reads the update counter for one outcome.
func updatesWithOutcome(registry *prometheus.Registry, outcome string) float64 {
	families, err := registry.Gather()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	for _, family := range families {
		if family.GetName() != "redock_updates_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}
