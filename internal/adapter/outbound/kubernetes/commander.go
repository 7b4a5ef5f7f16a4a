package kubernetes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
	k8s "k8s.io/client-go/kubernetes"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

// restartedAtAnnotation is the rollover marker kubectl uses for rolling
// restarts; mutating it makes the cluster replace pods gracefully instead of
// delete+recreate.
const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// CommanderConfig holds per-commander execution settings.
type CommanderConfig struct {
	Timeout          time.Duration
	FieldManager     string
	DefaultNamespace string
}

// Commander implements outbound.ClusterCommander with client-go. Every
// operation runs under the configured wall-clock timeout; the raw output and
// error text are captured without interpretation.
type Commander struct {
	clientset k8s.Interface
	dyn       dynamic.Interface
	mapper    meta.RESTMapper
	cfg       CommanderConfig
	now       func() time.Time
}

var _ outbound.ClusterCommander = (*Commander)(nil)

func NewCommander(clientset k8s.Interface, dyn dynamic.Interface, mapper meta.RESTMapper, cfg CommanderConfig) *Commander {
	if cfg.FieldManager == "" {
		cfg.FieldManager = "eksops"
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = "default"
	}
	return &Commander{clientset: clientset, dyn: dyn, mapper: mapper, cfg: cfg, now: time.Now}
}

// run executes one operation under the timeout. When the bound is exceeded
// the invocation reports ExecutionTimeout, but the submitted API call is not
// rolled back: a mutating action may still complete server-side. That gap is
// accepted; re-invocation gives at-least-once, never exactly-once.
func (c *Commander) run(ctx context.Context, fn func(ctx context.Context) (string, error)) (model.CommandResult, error) {
	start := c.now()
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	type outcome struct {
		out string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := fn(opCtx)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		duration := time.Since(start)
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) {
				return model.CommandResult{ExitCode: -1, DurationExceeded: true, Duration: duration},
					apierror.Timeout("operation exceeded %s", c.cfg.Timeout)
			}
			res := model.CommandResult{ExitCode: 1, Stderr: []byte(o.err.Error()), Duration: duration}
			var ae *apierror.Error
			if errors.As(o.err, &ae) {
				return res, o.err
			}
			return res, apierror.Execution(o.err, "cluster API call failed")
		}
		return model.CommandResult{Stdout: []byte(o.out), Duration: duration}, nil
	case <-opCtx.Done():
		duration := time.Since(start)
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return model.CommandResult{ExitCode: -1, DurationExceeded: true, Duration: duration},
				apierror.Timeout("operation exceeded %s", c.cfg.Timeout)
		}
		return model.CommandResult{ExitCode: -1, Duration: duration},
			apierror.Execution(opCtx.Err(), "operation canceled")
	}
}

// Get lists deployments, pods and services in the namespace as plain text.
func (c *Commander) Get(ctx context.Context, namespace string) (model.CommandResult, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		deployments, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return "", apierror.Execution(err, "listing deployments in %s", namespace)
		}
		pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return "", apierror.Execution(err, "listing pods in %s", namespace)
		}
		services, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return "", apierror.Execution(err, "listing services in %s", namespace)
		}

		var sb strings.Builder
		for i := range deployments.Items {
			fmt.Fprintln(&sb, formatDeployment(&deployments.Items[i]))
		}
		for i := range pods.Items {
			fmt.Fprintln(&sb, formatPod(&pods.Items[i]))
		}
		for i := range services.Items {
			fmt.Fprintln(&sb, formatService(&services.Items[i]))
		}
		if sb.Len() == 0 {
			return fmt.Sprintf("no resources found in namespace %s\n", namespace), nil
		}
		return sb.String(), nil
	})
}

// Restart triggers a rolling restart by patching the rollover marker on the
// pod template. Two restarts are two rollovers: the operation is repeatable
// at the request level but deliberately not idempotent at the cluster level.
func (c *Commander) Restart(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		patch := map[string]any{
			"spec": map[string]any{
				"template": map[string]any{
					"metadata": map[string]any{
						"annotations": map[string]string{
							restartedAtAnnotation: c.now().UTC().Format(time.RFC3339Nano),
						},
					},
				},
			},
		}
		data, err := json.Marshal(patch)
		if err != nil {
			return "", apierror.Execution(err, "marshaling restart patch")
		}

		_, err = c.clientset.AppsV1().Deployments(namespace).Patch(
			ctx, deployment, types.StrategicMergePatchType, data,
			metav1.PatchOptions{FieldManager: c.cfg.FieldManager})
		if err != nil {
			return "", apierror.Execution(err, "restarting deployment %s/%s", namespace, deployment)
		}
		return fmt.Sprintf("deployment.apps/%s restarted", deployment), nil
	})
}

// Apply submits a single-document manifest through server-side apply. The
// API server merges it against existing state, so repeating the same
// manifest produces no additional change.
func (c *Commander) Apply(ctx context.Context, namespace, manifest string) (model.CommandResult, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		obj, err := decodeManifest(manifest)
		if err != nil {
			return "", err
		}
		name := obj.GetName()
		if name == "" {
			return "", apierror.Validation("manifest is missing metadata.name")
		}

		gvk := obj.GroupVersionKind()
		mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			return "", apierror.Execution(err, "resolving resource mapping for %s", gvk)
		}

		resource := c.dyn.Resource(mapping.Resource)
		var ri dynamic.ResourceInterface = resource
		if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
			ns := obj.GetNamespace()
			if ns == "" {
				ns = namespace
			}
			if ns == "" {
				ns = c.cfg.DefaultNamespace
			}
			obj.SetNamespace(ns)
			ri = resource.Namespace(ns)
		}

		applied, err := ri.Apply(ctx, name, obj, metav1.ApplyOptions{
			FieldManager: c.cfg.FieldManager,
			Force:        true,
		})
		if err != nil {
			return "", apierror.Execution(err, "applying %s %q", mapping.Resource.Resource, name)
		}
		qualified := mapping.Resource.Resource
		if mapping.Resource.Group != "" {
			qualified += "." + mapping.Resource.Group
		}
		return fmt.Sprintf("%s/%s applied", qualified, applied.GetName()), nil
	})
}

// Status reports the rollout state of one deployment.
func (c *Commander) Status(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		d, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, deployment, metav1.GetOptions{})
		if err != nil {
			return "", apierror.Execution(err, "getting deployment %s/%s", namespace, deployment)
		}
		return rolloutStatus(d), nil
	})
}

// Describe returns a detailed description of one deployment.
func (c *Commander) Describe(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		d, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, deployment, metav1.GetOptions{})
		if err != nil {
			return "", apierror.Execution(err, "getting deployment %s/%s", namespace, deployment)
		}
		return describeDeployment(d), nil
	})
}

// decodeManifest parses exactly one YAML or JSON document into an
// unstructured object. Multi-document input is rejected: multi-document
// semantics are unsettled, so only the single-document contract is offered.
func decodeManifest(manifest string) (*unstructured.Unstructured, error) {
	if strings.TrimSpace(manifest) == "" {
		return nil, apierror.Validation("manifest is empty")
	}

	dec := utilyaml.NewYAMLOrJSONDecoder(strings.NewReader(manifest), 4096)
	obj := &unstructured.Unstructured{}
	if err := dec.Decode(obj); err != nil {
		return nil, apierror.Validation("manifest is not a valid resource document: %v", err)
	}
	if len(obj.Object) == 0 || obj.GetAPIVersion() == "" || obj.GetKind() == "" {
		return nil, apierror.Validation("manifest must declare apiVersion and kind")
	}

	extra := &unstructured.Unstructured{}
	switch err := dec.Decode(extra); {
	case err == nil && len(extra.Object) > 0:
		return nil, apierror.Validation("manifest must contain exactly one document")
	case err == nil, errors.Is(err, io.EOF):
		// ok
	default:
		return nil, apierror.Validation("trailing content after first document: %v", err)
	}

	return obj, nil
}
