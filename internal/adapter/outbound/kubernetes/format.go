package kubernetes

import (
	"fmt"
	"sort"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// --- plain-text rendering of cluster resources ---

func formatDeployment(d *appsv1.Deployment) string {
	return fmt.Sprintf("deployment.apps/%s replicas=%d/%d updated=%d available=%d",
		d.Name, d.Status.ReadyReplicas, d.Status.Replicas,
		d.Status.UpdatedReplicas, d.Status.AvailableReplicas)
}

func formatPod(pod *corev1.Pod) string {
	return fmt.Sprintf("pod/%s phase=%s node=%s",
		pod.Name, pod.Status.Phase, pod.Spec.NodeName)
}

func formatService(svc *corev1.Service) string {
	return fmt.Sprintf("service/%s type=%s clusterIP=%s",
		svc.Name, svc.Spec.Type, svc.Spec.ClusterIP)
}

// rolloutStatus mirrors the rollout-status verdict of the standard CLI for
// deployments: observed generation first, then updated, terminating and
// available replica counts.
func rolloutStatus(d *appsv1.Deployment) string {
	if d.Generation > d.Status.ObservedGeneration {
		return fmt.Sprintf("Waiting for deployment %q spec update to be observed...", d.Name)
	}
	for _, cond := range d.Status.Conditions {
		if cond.Type == appsv1.DeploymentProgressing && cond.Reason == "ProgressDeadlineExceeded" {
			return fmt.Sprintf("deployment %q exceeded its progress deadline", d.Name)
		}
	}

	replicas := int32(1)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	switch {
	case d.Status.UpdatedReplicas < replicas:
		return fmt.Sprintf("Waiting for deployment %q rollout to finish: %d out of %d new replicas have been updated...",
			d.Name, d.Status.UpdatedReplicas, replicas)
	case d.Status.Replicas > d.Status.UpdatedReplicas:
		return fmt.Sprintf("Waiting for deployment %q rollout to finish: %d old replicas are pending termination...",
			d.Name, d.Status.Replicas-d.Status.UpdatedReplicas)
	case d.Status.AvailableReplicas < d.Status.UpdatedReplicas:
		return fmt.Sprintf("Waiting for deployment %q rollout to finish: %d of %d updated replicas are available...",
			d.Name, d.Status.AvailableReplicas, d.Status.UpdatedReplicas)
	}
	return fmt.Sprintf("deployment %q successfully rolled out", d.Name)
}

func describeDeployment(d *appsv1.Deployment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Name:       %s\n", d.Name)
	fmt.Fprintf(&sb, "Namespace:  %s\n", d.Namespace)

	replicas := int32(0)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	fmt.Fprintf(&sb, "Replicas:   %d desired | %d updated | %d ready | %d available\n",
		replicas, d.Status.UpdatedReplicas, d.Status.ReadyReplicas, d.Status.AvailableReplicas)
	fmt.Fprintf(&sb, "Strategy:   %s\n", d.Spec.Strategy.Type)

	if sel := d.Spec.Selector; sel != nil && len(sel.MatchLabels) > 0 {
		fmt.Fprintf(&sb, "Selector:   %s\n", formatLabels(sel.MatchLabels))
	}

	for _, container := range d.Spec.Template.Spec.Containers {
		fmt.Fprintf(&sb, "Container:  %s image=%s\n", container.Name, container.Image)
	}

	if restartedAt, ok := d.Spec.Template.Annotations[restartedAtAnnotation]; ok {
		fmt.Fprintf(&sb, "RestartedAt: %s\n", restartedAt)
	}

	for _, cond := range d.Status.Conditions {
		fmt.Fprintf(&sb, "Condition:  %s=%s reason=%s\n", cond.Type, cond.Status, cond.Reason)
	}

	return sb.String()
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+labels[k])
	}
	return strings.Join(pairs, ",")
}
