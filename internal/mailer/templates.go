package mailer

import "fmt"

// Transactional email bodies. Kept as Go code rather than template files so
// the worker binary stays self-contained.

// PasswordReset renders the reset email in the user's language.
func PasswordReset(language, resetURL string) (subject, html string) {
	if language == "fr" {
		return "Réinitialisez votre mot de passe",
			fmt.Sprintf(`<p>Bonjour,</p>
<p>Cliquez sur le lien ci-dessous pour choisir un nouveau mot de passe. Le lien expire dans une heure.</p>
<p><a href="%s">Réinitialiser mon mot de passe</a></p>
<p>Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.</p>`, resetURL)
	}
	return "Reset your password",
		fmt.Sprintf(`<p>Hello,</p>
<p>Click the link below to choose a new password. The link expires in one hour.</p>
<p><a href="%s">Reset my password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>`, resetURL)
}

// Welcome renders the post-registration email.
func Welcome(language, firstName string) (subject, html string) {
	name := firstName
	if name == "" {
		name = "there"
		if language == "fr" {
			name = "bonjour"
		}
	}
	if language == "fr" {
		return "Bienvenue sur Brevy",
			fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Votre compte est prêt. Vos brouillons de CV sont désormais sauvegardés automatiquement.</p>`, name)
	}
	return "Welcome to Brevy",
		fmt.Sprintf(`<p>Hi %s,</p>
<p>Your account is ready. Your resume drafts are now saved automatically.</p>`, name)
}

// AccountDeleted confirms a deletion request and names the grace period.
func AccountDeleted(language string, graceDays int) (subject, html string) {
	if language == "fr" {
		return "Votre compte a été supprimé",
			fmt.Sprintf(`<p>Votre compte et vos CV ont été supprimés.</p>
<p>Vos données seront définitivement effacées dans %d jours.</p>`, graceDays)
	}
	return "Your account has been deleted",
		fmt.Sprintf(`<p>Your account and resumes have been deleted.</p>
<p>Your data will be permanently erased in %d days.</p>`, graceDays)
}
