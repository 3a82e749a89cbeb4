// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package login

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Keys of the activation email.
const (
	KeyActivationSubject = "activationSubject"
	KeyActivationBody    = "activationBody"
)

var (
	supportedLanguages = []language.Tag{language.English, language.German}
	languageMatcher    = language.NewMatcher(supportedLanguages)
	messages           = mustCatalog()
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeyInternal:               "An internal error occurred. Please try again later.",
		KeyConfiguration:          "This login method is not configured correctly.",
		KeyProtocolViolation:      "The login response could not be verified.",
		KeyProviderError:          "The identity provider refused the login.",
		KeyUpstreamFailure:        "The identity provider could not be reached.",
		KeyNoUserMapped:           "No account is linked to this login.",
		KeyNoEmail:                "The identity provider did not share an email address.",
		KeyEmailSendFailed:        "The activation email could not be sent.",
		KeyPasswordEmpty:          "Please enter a password.",
		KeyPasswordTooShort:       "The password must be at least %d characters long.",
		KeyPasswordMismatch:       "The passwords do not match.",
		KeyActivationCodeMismatch: "The activation code is not valid.",
		KeyActivationSubject:      "Your activation code",
		KeyActivationBody:         "Your activation code is %s.\n\nEnter it on the login page or open this link to finish creating your account:\n%s\n",
	},
	language.German: {
		KeyInternal:               "Ein interner Fehler ist aufgetreten. Bitte versuchen Sie es später erneut.",
		KeyConfiguration:          "Diese Anmeldemethode ist nicht richtig konfiguriert.",
		KeyProtocolViolation:      "Die Anmeldeantwort konnte nicht überprüft werden.",
		KeyProviderError:          "Der Identitätsanbieter hat die Anmeldung abgelehnt.",
		KeyUpstreamFailure:        "Der Identitätsanbieter ist nicht erreichbar.",
		KeyNoUserMapped:           "Mit dieser Anmeldung ist kein Konto verknüpft.",
		KeyNoEmail:                "Der Identitätsanbieter hat keine E-Mail-Adresse übermittelt.",
		KeyEmailSendFailed:        "Die Aktivierungs-E-Mail konnte nicht gesendet werden.",
		KeyPasswordEmpty:          "Bitte geben Sie ein Passwort ein.",
		KeyPasswordTooShort:       "Das Passwort muss mindestens %d Zeichen lang sein.",
		KeyPasswordMismatch:       "Die Passwörter stimmen nicht überein.",
		KeyActivationCodeMismatch: "Der Aktivierungscode ist ungültig.",
		KeyActivationSubject:      "Ihr Aktivierungscode",
		KeyActivationBody:         "Ihr Aktivierungscode lautet %s.\n\nGeben Sie ihn auf der Anmeldeseite ein oder öffnen Sie diesen Link, um Ihr Konto fertig einzurichten:\n%s\n",
	},
}

func mustCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// MatchLanguage picks the supported language closest to an Accept-Language
// header. It defaults to English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// Localize returns the text of a message key. Unknown keys are returned as
// is.
func Localize(tag language.Tag, key string, args ...interface{}) string {
	_, idx, _ := languageMatcher.Match(tag)
	return message.NewPrinter(supportedLanguages[idx], message.Catalog(messages)).Sprintf(key, args...)
}

// LocalizeError returns the end user text for err.
func LocalizeError(tag language.Tag, err error) string {
	key := KeyOf(err)
	if key == KeyPasswordTooShort {
		return Localize(tag, key, MinPasswordLength)
	}
	return Localize(tag, key)
}
