package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Template names used by the services and jobs.
const (
	TplStudentWelcome     = "student_welcome"
	TplFeeBill            = "fee_bill"
	TplPaymentReceipt     = "payment_receipt"
	TplAbsence            = "absence"
	TplLateArrivals       = "late_arrivals"
	TplTransferApproval   = "transfer_approval"
	TplTransferCompleted  = "transfer_completed"
	TplConsentApproved    = "consent_approved"
	TplConsentRevoked     = "consent_revoked"
	TplBudgetApproval     = "budget_approval"
	TplBudgetAlert        = "budget_alert"
	TplExpenseApproval    = "expense_approval"
	TplExpenseDecision    = "expense_decision"
	TplExamScheduled      = "exam_scheduled"
	TplGradePublished     = "grade_published"
	TplAttendanceReminder = "attendance_reminder"
	TplFeeOverdue         = "fee_overdue"
	TplFeeUpcoming        = "fee_upcoming"
	TplReorderReport      = "reorder_report"
	TplSalarySlip         = "salary_slip"
	TplAbsenceStreaks     = "absence_streaks"
	TplAbsenceStreak      = "absence_streak"
	TplWeeklyClass        = "weekly_class_attendance"
	TplWeeklyStudent      = "weekly_student_attendance"
	TplBudgetBurn         = "budget_burn"
	TplPayrollCheck       = "payroll_check"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}

// subject and body are separated by the first blank line.
var sources = map[string]string{
	TplStudentWelcome: `Bienvenue à {{.School}}

Bonjour,

{{.StudentName}} (code MASSAR {{.MassarCode}}) est désormais inscrit(e) à {{.School}}{{if .ClassName}} en classe {{.ClassName}}{{end}}.

Cordialement,
La direction`,

	TplFeeBill: `Facture de frais scolaires n°{{.BillID}}

Bonjour,

Une facture de {{money .Total}} {{.Currency}} a été émise pour {{.StudentName}}.
{{range .Items}}- {{.FeeType}} : {{money .Amount}} {{$.Currency}}
{{end}}Échéance : {{.DueDate}}.

Cordialement,
Le service comptable`,

	TplPaymentReceipt: `Reçu de paiement {{.ReceiptNo}}

Bonjour,

Nous accusons réception de {{money .Amount}} {{.Currency}} ({{.Mode}}) pour {{.StudentName}}.
Reste à payer sur la facture n°{{.BillID}} : {{money .Outstanding}} {{.Currency}}.

Cordialement,
Le service comptable`,

	TplAbsence: `{{.Status}} : {{.StudentName}} le {{.Date}}

Bonjour,

{{.StudentName}} a été marqué(e) « {{.Status}} » le {{.Date}}{{if .ArrivalTime}} (arrivée à {{.ArrivalTime}}){{end}}.
Merci de contacter l'établissement si nécessaire.

La vie scolaire`,

	TplLateArrivals: `Retard de {{.StudentName}} aujourd'hui

Bonjour,

{{.StudentName}} ({{.ClassName}}) est arrivé(e) en retard aujourd'hui à {{.ArrivalTime}}.

La vie scolaire`,

	TplTransferApproval: `Demande de transfert à valider : {{.StudentName}}

Bonjour,

Une demande de transfert ({{.TransferType}}) pour {{.StudentName}} attend votre validation.
Motif : {{.Reason}}

EasyGo Schools`,

	TplTransferCompleted: `Transfert de {{.StudentName}} effectué

Bonjour,

Le transfert ({{.TransferType}}) de {{.StudentName}} a été effectué le {{.Date}}.

La direction`,

	TplConsentApproved: `Autorisation enregistrée : {{.ConsentType}}

Bonjour,

Votre autorisation « {{.ConsentType}} » pour {{.StudentName}} est enregistrée jusqu'au {{.ExpiryDate}}.

La direction`,

	TplConsentRevoked: `Autorisation révoquée : {{.ConsentType}}

Bonjour,

L'autorisation « {{.ConsentType}} » pour {{.StudentName}} a été révoquée.
Motif : {{.Reason}}

La direction`,

	TplBudgetApproval: `Budget à approuver : {{.BudgetName}}

Bonjour,

Le budget « {{.BudgetName}} » ({{.CostCenter}}) d'un montant de {{money .Total}} attend votre approbation.

EasyGo Schools`,

	TplBudgetAlert: `[{{.Level}}] Ligne budgétaire consommée à {{pct .Percentage}}

Bonjour,

La ligne « {{.Line}} » du budget « {{.BudgetName}} » est consommée à {{pct .Percentage}}.
Alloué : {{money .Allocated}}, consommé : {{money .Consumed}}, restant : {{money .Remaining}}.

EasyGo Schools`,

	TplExpenseApproval: `Dépense à approuver : {{money .Amount}}

Bonjour,

Une dépense de {{money .Amount}} ({{.Description}}) attend votre approbation.

EasyGo Schools`,

	TplExpenseDecision: `Dépense n°{{.ExpenseID}} : {{.Status}}

Bonjour,

Votre dépense de {{money .Amount}} ({{.Description}}) est passée au statut « {{.Status}} ».{{if .Reason}}
Motif : {{.Reason}}{{end}}

EasyGo Schools`,

	TplExamScheduled: `Examen programmé : {{.ExamName}}

Bonjour,

L'examen « {{.ExamName}} » ({{.Subject}}) aura lieu le {{.Date}} de {{.Start}} à {{.End}}{{if .Room}}, salle {{.Room}}{{end}}.

La direction pédagogique`,

	TplGradePublished: `Nouvelle note publiée pour {{.StudentName}}

Bonjour,

{{.StudentName}} a obtenu {{.Grade}}/{{.MaxGrade}} ({{.LetterGrade}}) en {{.Subject}} ({{.Assessment}}).

La direction pédagogique`,

	TplAttendanceReminder: `Appel non effectué : {{.ClassName}}

Bonjour {{.TeacherName}},

L'appel de la classe {{.ClassName}} n'a pas encore été saisi pour le {{.Date}}.

La vie scolaire`,

	TplFeeOverdue: `Rappel : facture n°{{.BillID}} en retard

Bonjour,

La facture n°{{.BillID}} de {{.StudentName}} était due le {{.DueDate}}. Reste à payer : {{money .Outstanding}} {{.Currency}}.

Le service comptable`,

	TplFeeUpcoming: `Échéance proche : facture n°{{.BillID}}

Bonjour,

La facture n°{{.BillID}} de {{.StudentName}} arrive à échéance le {{.DueDate}}. Montant : {{money .Outstanding}} {{.Currency}}.

Le service comptable`,

	TplReorderReport: `Articles à réapprovisionner ({{len .Items}})

Bonjour,

Les articles suivants sont au niveau de réapprovisionnement ou en dessous :
{{range .Items}}- {{.ItemCode}} {{.ItemName}} ({{.Warehouse}}) : {{.ActualQty}} {{.Unit}}, seuil {{.ReorderLevel}}
{{end}}
EasyGo Schools`,

	TplSalarySlip: `Bulletin de paie {{.Period}}

Bonjour {{.EmployeeName}},

Votre bulletin de paie pour la période {{.Period}} est disponible.
Brut : {{money .Gross}}, retenues : {{money .Deductions}}, net : {{money .Net}}.

Le service RH`,

	TplAbsenceStreaks: `Absences répétées : {{len .Students}} élève(s)

Bonjour,

Les élèves suivants cumulent au moins {{.Threshold}} absences entre le {{.From}} et le {{.To}} :
{{range .Students}}- {{.StudentName}}{{if .ClassName}} ({{.ClassName}}){{end}} : {{.Absences}} absences
{{end}}
La vie scolaire`,

	TplAbsenceStreak: `Absences répétées de {{.StudentName}}

Bonjour,

{{.StudentName}} a été absent(e) {{.Absences}} fois entre le {{.From}} et le {{.To}}.
Merci de contacter l'établissement.

La vie scolaire`,

	TplWeeklyClass: `Bilan hebdomadaire des présences : {{.ClassName}}

Bonjour {{.TeacherName}},

Présences de la classe {{.ClassName}} du {{.From}} au {{.To}} :
{{range .Students}}- {{.StudentName}} : {{.Present}} présent(s), {{.Absent}} absence(s), {{.Late}} retard(s), {{pct .Rate}}
{{end}}
La vie scolaire`,

	TplWeeklyStudent: `Bilan hebdomadaire des présences : {{.StudentName}}

Bonjour,

Du {{.From}} au {{.To}}, {{.StudentName}} compte {{.Present}} présence(s), {{.Absent}} absence(s) et {{.Late}} retard(s), soit un taux de présence de {{pct .Rate}}.
Merci de contacter l'établissement pour toute question.

La vie scolaire`,

	TplBudgetBurn: `Lignes budgétaires consommées à plus de {{pct .Threshold}} ({{len .Lines}})

Bonjour,

{{range .Lines}}- {{.AccountName}}{{if .Description}} ({{.Description}}){{end}} : {{pct .PercentageConsumed}} consommé ({{money .ConsumedAmount}} / {{money .AllocatedAmount}})
{{end}}
EasyGo Schools`,

	TplPayrollCheck: `Contrôle de paie {{.Period}}

Bonjour,

Bulletins validés : {{.Slips}}. Salariés actifs sans bulletin : {{.Missing}}.
{{if .Issues}}Anomalies :
{{range .Issues}}- {{.Kind}} : {{.Detail}}
{{end}}{{else}}Aucune anomalie.
{{end}}
Le service RH`,
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(sources))
	for name, src := range sources {
		out[name] = template.Must(template.New(name).Funcs(funcs).Parse(src))
	}
	return out
}()

// Render executes a named template and splits the result into subject and body.
func Render(name string, data map[string]interface{}) (string, string, error) {
	tpl, ok := parsed[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	subject, body, _ := strings.Cut(buf.String(), "\n\n")
	return strings.TrimSpace(subject), strings.TrimSpace(body), nil
}
