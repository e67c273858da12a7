// Package mocks provides ghttp handlers emulating the Docker daemon API.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// FoundStatus selects between a success and a 404 response.
type FoundStatus bool

const (
	Found   FoundStatus = true
	Missing FoundStatus = false
)

// Mock response fixture for no-content status (204).
var noContentStatusResponse = ghttp.RespondWith(http.StatusNoContent, nil)

// errorResponse mirrors the daemon's error body.
type errorResponse struct {
	Message string `json:"message"`
}

// ListRunningContainersHandler verifies the running filter and serves the given summaries.
func ListRunningContainersHandler(summaries ...container.Summary) http.HandlerFunc {
	filterArgs := filters.NewArgs()
	filterArgs.Add("status", "running")
	bytes, err := filterArgs.MarshalJSON()
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())

	query := url.Values{
		"filters": []string{string(bytes)},
	}

	if summaries == nil {
		summaries = []container.Summary{}
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("containers/json"), query.Encode()),
		ghttp.RespondWithJSONEncoded(http.StatusOK, summaries),
	)
}

// GetContainerHandler returns a 404 if containerInfo is nil; otherwise, serves the provided info.
func GetContainerHandler(containerID string, containerInfo *container.InspectResponse) http.HandlerFunc {
	responseHandler := notFoundResponse("No such container: " + containerID)
	if containerInfo != nil {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, containerInfo)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/%v/json", containerID)),
		responseHandler,
	)
}

// GetImageHandler serves imageInfo for ref, or a 404 when imageInfo is nil.
func GetImageHandler(ref string, imageInfo *image.InspectResponse) http.HandlerFunc {
	responseHandler := notFoundResponse("No such image: " + ref)
	if imageInfo != nil {
		responseHandler = ghttp.RespondWithJSONEncoded(http.StatusOK, imageInfo)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/images/%s/json", ref)),
		responseHandler,
	)
}

// PullImageHandler verifies the pulled reference and streams the given progress messages.
func PullImageHandler(fromImage, tag string, messages ...jsonmessage.JSONMessage) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/images/create")),
		ghttp.VerifyFormKV("fromImage", fromImage),
		ghttp.VerifyFormKV("tag", tag),
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)

			encoder := json.NewEncoder(w)
			for _, message := range messages {
				_ = encoder.Encode(message)
			}
		},
	)
}

// KillContainerHandler verifies the signal and returns 204 if found, 404 if not.
func KillContainerHandler(containerID, signal string, found FoundStatus) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if !found {
		responseHandler = notFoundResponse("No such container: " + containerID)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/%s/kill", containerID), "signal="+signal),
		responseHandler,
	)
}

// RemoveContainerHandler returns 204 if found, 404 if not.
func RemoveContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if !found {
		responseHandler = notFoundResponse("No such container: " + containerID)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("containers/%s", containerID)),
		responseHandler,
	)
}

// CreateContainerHandler verifies the container name, hands the decoded body to inspect and returns newID.
func CreateContainerHandler(
	name, newID string,
	inspect func(container.CreateRequest),
) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/create"), "name="+name),
		func(_ http.ResponseWriter, r *http.Request) {
			var body container.CreateRequest

			gomega.ExpectWithOffset(1, json.NewDecoder(r.Body).Decode(&body)).To(gomega.Succeed())

			if inspect != nil {
				inspect(body)
			}
		},
		ghttp.RespondWithJSONEncoded(http.StatusCreated, container.CreateResponse{ID: newID}),
	)
}

// StartContainerHandler returns 204, or the given status with an error message.
func StartContainerHandler(containerID string, status int) http.HandlerFunc {
	responseHandler := noContentStatusResponse
	if status != http.StatusNoContent {
		responseHandler = ghttp.RespondWithJSONEncoded(status, errorResponse{Message: "cannot start container"})
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("containers/%s/start", containerID)),
		responseHandler,
	)
}

// notFoundResponse serves a daemon-style 404.
func notFoundResponse(message string) http.HandlerFunc {
	return ghttp.RespondWithJSONEncoded(http.StatusNotFound, errorResponse{Message: message})
}
