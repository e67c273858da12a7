package container

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	dockerNat "github.com/docker/go-connections/nat"
	dockerspec "github.com/moby/docker-image-spec/specs-go/v1"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/redock/pkg/container/mocks"
	"github.com/nicholas-fedor/redock/pkg/types"
)

var _ = ginkgo.Describe("the client", func() {
	var docker *dockerClient.Client
	var mockServer *ghttp.Server
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		mockServer = ghttp.NewServer()
		docker, _ = dockerClient.NewClientWithOpts(
			dockerClient.WithHost(mockServer.URL()),
			dockerClient.WithHTTPClient(mockServer.HTTPTestServer.Client()))
		ctx = context.Background()
		pollInterval = 10 * time.Millisecond
	})
	ginkgo.AfterEach(func() {
		mockServer.Close()
	})

	newClient := func(opts ClientOptions) types.Client {
		return NewClientWithAPI(docker, opts)
	}

	ginkgo.Describe("ListRunningContainers", func() {
		ginkgo.It("should return inspected containers in listing order", func() {
			first := MockContainer(WithID("aaa"))
			second := MockContainer(WithID("bbb"))
			mockServer.AppendHandlers(
				mocks.ListRunningContainersHandler(
					dockerContainerType.Summary{ID: "aaa"},
					dockerContainerType.Summary{ID: "bbb"},
				),
				mocks.GetContainerHandler("aaa", first.ContainerInfo()),
				mocks.GetContainerHandler("bbb", second.ContainerInfo()),
			)

			containers, err := newClient(ClientOptions{}).ListRunningContainers(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(containers).To(gomega.HaveLen(2))
			gomega.Expect(containers[0].ID()).To(gomega.Equal(types.ContainerID("aaa")))
			gomega.Expect(containers[1].ID()).To(gomega.Equal(types.ContainerID("bbb")))
		})

		ginkgo.It("should skip containers that vanish before inspection", func() {
			second := MockContainer(WithID("bbb"))
			mockServer.AppendHandlers(
				mocks.ListRunningContainersHandler(
					dockerContainerType.Summary{ID: "aaa"},
					dockerContainerType.Summary{ID: "bbb"},
				),
				mocks.GetContainerHandler("aaa", nil),
				mocks.GetContainerHandler("bbb", second.ContainerInfo()),
			)

			containers, err := newClient(ClientOptions{}).ListRunningContainers(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(containers).To(gomega.HaveLen(1))
			gomega.Expect(containers[0].ID()).To(gomega.Equal(types.ContainerID("bbb")))
		})

		ginkgo.It("should resolve a network container reference to its name", func() {
			consumer := MockContainer(WithID("aaa"), WithNetworkMode("container:bbb"))
			supplier := MockContainer(WithID("bbb"))
			supplier.ContainerInfo().Name = "/vpn"
			mockServer.AppendHandlers(
				mocks.ListRunningContainersHandler(dockerContainerType.Summary{ID: "aaa"}),
				mocks.GetContainerHandler("aaa", consumer.ContainerInfo()),
				mocks.GetContainerHandler("bbb", supplier.ContainerInfo()),
			)

			containers, err := newClient(ClientOptions{}).ListRunningContainers(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(containers[0].HostConfig().NetworkMode)).To(gomega.Equal("container:vpn"))
		})
	})

	ginkgo.Describe("GetImage", func() {
		ginkgo.It("should convert the inspect response", func() {
			mockServer.AppendHandlers(mocks.GetImageHandler("sha256:old", &dockerImageType.InspectResponse{
				ID:       "sha256:old",
				RepoTags: []string{"ghcr.io/acme/web:1.4", "ghcr.io/acme/web:latest"},
				Config: &dockerspec.DockerOCIImageConfig{
					ImageConfig: ocispec.ImageConfig{User: "app", Cmd: []string{"serve"}},
				},
			}))

			image, err := newClient(ClientOptions{}).GetImage(ctx, "sha256:old")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(image.ID).To(gomega.Equal(types.ImageID("sha256:old")))
			gomega.Expect(image.FirstTag()).To(gomega.Equal("ghcr.io/acme/web:1.4"))
			gomega.Expect(image.Config.User).To(gomega.Equal("app"))
		})

		ginkgo.It("should keep the not-found classification for missing images", func() {
			mockServer.AppendHandlers(mocks.GetImageHandler("sha256:gone", nil))

			_, err := newClient(ClientOptions{}).GetImage(ctx, "sha256:gone")
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(cerrdefs.IsNotFound(err)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("PullImage", func() {
		ginkgo.BeforeEach(func() {
			ginkgo.GinkgoT().Setenv("DOCKER_CONFIG", ginkgo.GinkgoT().TempDir())
			ginkgo.GinkgoT().Setenv("REPO_USER", "")
			ginkgo.GinkgoT().Setenv("REPO_PASS", "")
		})

		ginkgo.It("should pull the tag and return the resulting image", func() {
			mockServer.AppendHandlers(
				mocks.PullImageHandler("ghcr.io/acme/web", "1.4",
					jsonmessage.JSONMessage{Status: "Pulling from acme/web", ID: "1.4"},
					jsonmessage.JSONMessage{Status: "Status: Downloaded newer image for ghcr.io/acme/web:1.4"},
				),
				mocks.GetImageHandler("ghcr.io/acme/web:1.4", &dockerImageType.InspectResponse{
					ID:       "sha256:new",
					RepoTags: []string{"ghcr.io/acme/web:1.4"},
				}),
			)

			image, err := newClient(ClientOptions{}).PullImage(ctx, "ghcr.io/acme/web:1.4")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(image.ID).To(gomega.Equal(types.ImageID("sha256:new")))
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(2))
		})

		ginkgo.It("should fail when the progress stream reports an error", func() {
			mockServer.AppendHandlers(
				mocks.PullImageHandler("ghcr.io/acme/web", "1.4",
					jsonmessage.JSONMessage{Error: &jsonmessage.JSONError{Message: "manifest unknown"}},
				),
			)

			_, err := newClient(ClientOptions{}).PullImage(ctx, "ghcr.io/acme/web:1.4")
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("manifest unknown")))
			gomega.Expect(err).To(gomega.MatchError(errReadPullResponseFailed))
		})

		ginkgo.It("should reject an invalid reference without calling the daemon", func() {
			_, err := newClient(ClientOptions{}).PullImage(ctx, "UPPERCASE")
			gomega.Expect(err).To(gomega.MatchError(errPullImageFailed))
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("StopContainer", func() {
		ginkgo.It("should signal the container and wait for it to stop", func() {
			running := MockContainer(WithStopSignal("SIGQUIT"))
			stopped := MockContainer(WithContainerState(dockerContainerType.State{Running: false}))
			cid := running.ContainerInfo().ID
			mockServer.AppendHandlers(
				mocks.KillContainerHandler(cid, "SIGQUIT", mocks.Found),
				mocks.GetContainerHandler(cid, stopped.ContainerInfo()),
			)

			err := newClient(ClientOptions{}).StopContainer(ctx, running)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should default to SIGTERM", func() {
			running := MockContainer()
			cid := running.ContainerInfo().ID
			mockServer.AppendHandlers(
				mocks.KillContainerHandler(cid, "SIGTERM", mocks.Found),
				mocks.GetContainerHandler(cid, nil),
			)

			err := newClient(ClientOptions{}).StopContainer(ctx, running)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should not call the daemon for a container that is not running", func() {
			stopped := MockContainer(WithContainerState(dockerContainerType.State{Running: false}))

			err := newClient(ClientOptions{}).StopContainer(ctx, stopped)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.BeEmpty())
		})

		ginkgo.It("should proceed when the container outlives the timeout", func() {
			running := MockContainer()
			cid := running.ContainerInfo().ID
			mockServer.AppendHandlers(mocks.KillContainerHandler(cid, "SIGTERM", mocks.Found))
			mockServer.RouteToHandler(http.MethodGet, regexp.MustCompile("/containers/"+cid+"/json$"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, running.ContainerInfo()))

			err := newClient(ClientOptions{StopTimeout: 50 * time.Millisecond}).StopContainer(ctx, running)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should report kill failures", func() {
			running := MockContainer()
			cid := running.ContainerInfo().ID
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/%s/kill", cid)),
				ghttp.RespondWith(http.StatusInternalServerError, `{"message":"boom"}`),
			))

			err := newClient(ClientOptions{}).StopContainer(ctx, running)
			gomega.Expect(err).To(gomega.MatchError(errStopContainerFailed))
		})
	})

	ginkgo.Describe("RemoveContainer", func() {
		ginkgo.It("should remove the container and confirm it is gone", func() {
			c := MockContainer(WithContainerState(dockerContainerType.State{Running: false}))
			cid := c.ContainerInfo().ID
			mockServer.AppendHandlers(
				mocks.RemoveContainerHandler(cid, mocks.Found),
				mocks.GetContainerHandler(cid, nil),
			)

			err := newClient(ClientOptions{}).RemoveContainer(ctx, c)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should request volume removal when configured", func() {
			c := MockContainer()
			cid := c.ContainerInfo().ID
			mockServer.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("containers/%s", cid)),
					ghttp.VerifyFormKV("v", "1"),
					ghttp.RespondWith(http.StatusNoContent, nil),
				),
				mocks.GetContainerHandler(cid, nil),
			)

			err := newClient(ClientOptions{RemoveVolumes: true}).RemoveContainer(ctx, c)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should treat an already removed container as success", func() {
			c := MockContainer(WithAutoRemove())
			mockServer.AppendHandlers(mocks.RemoveContainerHandler(c.ContainerInfo().ID, mocks.Missing))

			err := newClient(ClientOptions{}).RemoveContainer(ctx, c)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should report removal failures", func() {
			c := MockContainer()
			cid := c.ContainerInfo().ID
			mockServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("containers/%s", cid)),
				ghttp.RespondWith(http.StatusInternalServerError, `{"message":"device busy"}`),
			))

			err := newClient(ClientOptions{}).RemoveContainer(ctx, c)
			gomega.Expect(err).To(gomega.MatchError(errRemoveContainerFailed))
		})
	})

	ginkgo.Describe("RunContainer", func() {
		spec := types.RunSpec{
			Name:           "shop-web-1",
			Image:          "ghcr.io/acme/web:1.5",
			Hostname:       "",
			User:           "1000",
			Env:            []string{"TOKEN=abc"},
			Labels:         map[string]string{"com.docker.compose.service": "web"},
			Cmd:            []string{"serve", "--debug"},
			NetworkMode:    "shop_default",
			NetworkAliases: []string{"web"},
			PortBindings: dockerNat.PortMap{
				"8080/tcp": []dockerNat.PortBinding{{HostIP: "0.0.0.0", HostPort: "80"}},
			},
			RestartPolicy: dockerContainerType.RestartPolicy{Name: dockerContainerType.RestartPolicyUnlessStopped},
		}

		ginkgo.It("should create, start and inspect the replacement", func() {
			started := MockContainer(WithID("new_id"))
			mockServer.AppendHandlers(
				mocks.CreateContainerHandler("shop-web-1", "new_id", func(body dockerContainerType.CreateRequest) {
					gomega.Expect(body.Config).NotTo(gomega.BeNil())
					gomega.Expect(body.Image).To(gomega.Equal("ghcr.io/acme/web:1.5"))
					gomega.Expect(body.Hostname).To(gomega.BeEmpty())
					gomega.Expect(body.User).To(gomega.Equal("1000"))
					gomega.Expect(body.Env).To(gomega.Equal([]string{"TOKEN=abc"}))
					gomega.Expect([]string(body.Cmd)).To(gomega.Equal([]string{"serve", "--debug"}))
					gomega.Expect(body.Entrypoint).To(gomega.BeNil())
					gomega.Expect(body.ExposedPorts).To(gomega.HaveKey(dockerNat.Port("8080/tcp")))
					gomega.Expect(body.HostConfig.NetworkMode).To(gomega.Equal(dockerContainerType.NetworkMode("shop_default")))
					gomega.Expect(body.HostConfig.PortBindings).To(gomega.Equal(spec.PortBindings))
					gomega.Expect(body.HostConfig.RestartPolicy.Name).To(gomega.Equal(dockerContainerType.RestartPolicyUnlessStopped))
					gomega.Expect(body.NetworkingConfig.EndpointsConfig).To(gomega.HaveKey("shop_default"))
					gomega.Expect(body.NetworkingConfig.EndpointsConfig["shop_default"].Aliases).To(gomega.Equal([]string{"web"}))
				}),
				mocks.StartContainerHandler("new_id", http.StatusNoContent),
				mocks.GetContainerHandler("new_id", started.ContainerInfo()),
			)

			c, err := newClient(ClientOptions{}).RunContainer(ctx, spec)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(c.ID()).To(gomega.Equal(types.ContainerID("new_id")))
		})

		ginkgo.It("should report start failures without removing the created container", func() {
			mockServer.AppendHandlers(
				mocks.CreateContainerHandler("shop-web-1", "new_id", nil),
				mocks.StartContainerHandler("new_id", http.StatusInternalServerError),
			)

			_, err := newClient(ClientOptions{}).RunContainer(ctx, spec)
			gomega.Expect(err).To(gomega.MatchError(errStartContainerFailed))
			gomega.Expect(mockServer.ReceivedRequests()).To(gomega.HaveLen(2))
		})
	})
})
