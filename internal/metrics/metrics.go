package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every series this package exports.
const namespace = "campusreg"

// Registry is the process-wide registry that handlers and collectors hook
// into. Using our own instead of prometheus.DefaultRegisterer keeps test
// binaries from tripping over duplicate registrations.
var Registry = prometheus.NewRegistry()

// AppInfo carries build information in labels on a constant gauge, the
// standard trick for joining version info onto other series in PromQL.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthStatus reports the aggregate health check outcome.
// 0 unhealthy, 1 degraded, 2 healthy.
var HealthStatus = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_status",
		Help:      "Overall server health status (0=unhealthy, 1=degraded, 2=healthy)",
	},
)

// StudentsCreatedTotal counts successfully created students.
var StudentsCreatedTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "students_created_total",
		Help:      "Total number of students created",
	},
)

// CoursesCreatedTotal counts successfully created courses.
var CoursesCreatedTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "courses_created_total",
		Help:      "Total number of courses created",
	},
)

// RegistrationsTotal counts registration attempts by outcome so the conflict
// rate under concurrent sign-ups stays visible on a dashboard.
var RegistrationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts by outcome",
	},
	[]string{"outcome"}, // outcome: created|duplicate|student_missing|course_missing|invalid|error
)

// RegistrationEmailsTotal counts confirmation email jobs by result.
var RegistrationEmailsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_emails_total",
		Help:      "Total number of registration confirmation emails by result",
	},
	[]string{"result"}, // result: enqueued|sent|skipped|failed
)

// Init registers the runtime collectors and pins the build info gauge.
// Call it once at startup, before the first scrape.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
