package registry

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Registry credential helpers", func() {
	ginkgo.AfterEach(func() {
		_ = os.Unsetenv(repoUserEnv)
		_ = os.Unsetenv(repoPassEnv)
		_ = os.Unsetenv(dockerConfigEnv)
	})

	ginkgo.Describe("EncodedEnvAuth", func() {
		ginkgo.It("should return repo credentials from env when set", func() {
			ginkgo.GinkgoT().Setenv(repoUserEnv, "redock-user")
			ginkgo.GinkgoT().Setenv(repoPassEnv, "redock-pass")

			auth, err := EncodedEnvAuth()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			decoded, err := base64.URLEncoding.DecodeString(auth)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(decoded)).To(gomega.ContainSubstring(`"username":"redock-user"`))
			gomega.Expect(string(decoded)).To(gomega.ContainSubstring(`"password":"redock-pass"`))
		})

		ginkgo.It("should return an error if repo envs are unset", func() {
			_, err := EncodedEnvAuth()
			gomega.Expect(err).To(gomega.MatchError(errUnsetRegAuthVars))
		})
	})

	ginkgo.Describe("EncodedConfigAuth", func() {
		ginkgo.It("should return an error for an invalid reference", func() {
			_, err := EncodedConfigAuth("")
			gomega.Expect(err).To(gomega.MatchError(errFailedGetRegistryAddress))
		})

		ginkgo.It("should return empty auth when the registry has no entry", func() {
			dir := ginkgo.GinkgoT().TempDir()
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"auths":{}}`), 0o600)).To(gomega.Succeed())
			ginkgo.GinkgoT().Setenv(dockerConfigEnv, dir)

			auth, err := EncodedConfigAuth("ghcr.io/acme/web:1.4")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(auth).To(gomega.BeEmpty())
		})

		ginkgo.It("should return credentials stored for the registry", func() {
			dir := ginkgo.GinkgoT().TempDir()
			// "user:pass"
			config := `{"auths":{"ghcr.io":{"auth":"dXNlcjpwYXNz"}}}`
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o600)).To(gomega.Succeed())
			ginkgo.GinkgoT().Setenv(dockerConfigEnv, dir)

			auth, err := EncodedAuth("ghcr.io/acme/web:1.4")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			decoded, err := base64.URLEncoding.DecodeString(auth)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(decoded)).To(gomega.ContainSubstring(`"username":"user"`))
		})
	})

	ginkgo.Describe("GetPullOptions", func() {
		ginkgo.It("should configure an authenticated pull when credentials exist", func() {
			ginkgo.GinkgoT().Setenv(repoUserEnv, "redock-user")
			ginkgo.GinkgoT().Setenv(repoPassEnv, "redock-pass")

			opts, err := GetPullOptions("nginx:latest")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(opts.RegistryAuth).NotTo(gomega.BeEmpty())
			gomega.Expect(opts.PrivilegeFunc).NotTo(gomega.BeNil())
		})

		ginkgo.It("should pull anonymously when no credentials exist", func() {
			ginkgo.GinkgoT().Setenv(dockerConfigEnv, ginkgo.GinkgoT().TempDir())

			opts, err := GetPullOptions("nginx:latest")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(opts.RegistryAuth).To(gomega.BeEmpty())
		})
	})
})
